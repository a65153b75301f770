package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamesMatch(t *testing.T) {
	tests := []struct {
		name       string
		payeeName  string
		parentName string
		want       bool
	}{
		{"exact match", "John Smith", "John Smith", true},
		{"case insensitive", "JOHN SMITH", "john smith", true},
		{"token order independent", "SMITH JOHN", "John Smith", true},
		{"subset of longer name", "J SMITH", "J Smith Jones", true},
		{"punctuation ignored", "O'Brien, Mary", "Mary O Brien", true},
		{"different surname", "MR J SMITH", "J Jones", false},
		{"blank payee never matches", "", "John Smith", false},
		{"blank parent never matches", "John Smith", "", false},
		{"both blank", "", "", false},
		{"punctuation only payee", "--", "John Smith", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NamesMatch(tt.payeeName, tt.parentName))
		})
	}
}

func TestReferenceContains(t *testing.T) {
	tests := []struct {
		name          string
		reference     string
		description   string
		invoiceNumber string
		want          bool
	}{
		{"in reference", "INV-2025-0042", "", "INV-2025-0042", true},
		{"in description", "", "payment for INV-2025-0042 thanks", "INV-2025-0042", true},
		{"case insensitive", "inv-2025-0042", "", "INV-2025-0042", true},
		{"substring of reference", "REF INV-2025-0042/01", "", "INV-2025-0042", true},
		{"absent", "standing order", "school fees", "INV-2025-0042", false},
		{"blank invoice number never matches", "anything", "anything", "", false},
		{"blank reference and description", "", "", "INV-2025-0042", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReferenceContains(tt.reference, tt.description, tt.invoiceNumber))
		})
	}
}
