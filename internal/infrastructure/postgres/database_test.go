package postgres

import (
	"strings"
	"testing"
)

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "placeholders kept",
			query: "SELECT id FROM point_accounts WHERE id = $1",
			want:  "SELECT id FROM point_accounts WHERE id = $1",
		},
		{
			name:  "whitespace collapsed",
			query: "\n\t\tSELECT id,\n\t\t       balance\n\t\tFROM point_accounts\n\t",
			want:  "SELECT id, balance FROM point_accounts",
		},
		{
			name:  "string literals masked",
			query: "SELECT 1 FROM point_histories WHERE type IN ('CHARGE', 'USE')",
			want:  "SELECT ? FROM point_histories WHERE type IN ('?', '?')",
		},
		{
			name:  "escaped quote",
			query: "SELECT 'it''s' AS s",
			want:  "SELECT '?' AS s",
		},
		{
			name:  "numbers masked but identifiers kept",
			query: "UPDATE point_accounts SET balance = 1500.5 WHERE id = 42 AND idx_2 > 0",
			want:  "UPDATE point_accounts SET balance = ? WHERE id = ? AND idx_2 > ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeQuery(tt.query); got != tt.want {
				t.Errorf("sanitizeQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeQuery_Truncates(t *testing.T) {
	got := sanitizeQuery("SELECT " + strings.Repeat("a", 400))
	if len(got) != 256+len("...") || !strings.HasSuffix(got, "...") {
		t.Errorf("sanitizeQuery() length = %d, want truncated to 256 + ...", len(got))
	}
}

func TestExtractSQLVerb(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"SELECT 1", "SELECT"},
		{"\n\t\tinsert into point_histories", "INSERT"},
		{"BEGIN", "BEGIN"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := extractSQLVerb(tt.query); got != tt.want {
			t.Errorf("extractSQLVerb(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}
