package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractName(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"first line", "Jane Doe\nSoftware Engineer", "Jane Doe"},
		{"first match wins", "Resume of John Smith and Mary Major", "John Smith"},
		{"all caps does not match", "JOHN SMITH\nengineer", NoNameFound},
		{"no match is a single space", "no capitalized pair here", " "},
		{"empty", "", " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractName(tt.text))
		})
	}
}

func TestExtractEmail(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"simple", "Contact: jane.doe@example.com", "jane.doe@example.com"},
		{"first of many", "a@b.io then c@d.org", "a@b.io"},
		{"plus addressing", "mail john+jobs@mail.co.uk today", "john+jobs@mail.co.uk"},
		{"none", "no email here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractEmail(tt.text))
		})
	}
}
