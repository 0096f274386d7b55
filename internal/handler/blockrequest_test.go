package handler

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBlockRequestValidate(t *testing.T) {
	cardID := uuid.NewString()
	longReason := strings.Repeat("x", 501)
	maxReason := strings.Repeat("x", 500)
	wideReason := strings.Repeat("ё", 500)

	tests := []struct {
		name      string
		req       createBlockRequest
		wantField string
	}{
		{
			name: "valid without reason",
			req:  createBlockRequest{CardID: cardID},
		},
		{
			name: "valid with reason",
			req:  createBlockRequest{CardID: cardID, Reason: ptr("card lost")},
		},
		{
			name: "reason at the limit",
			req:  createBlockRequest{CardID: cardID, Reason: &maxReason},
		},
		{
			name: "multibyte reason counts runes not bytes",
			req:  createBlockRequest{CardID: cardID, Reason: &wideReason},
		},
		{
			name:      "missing card id",
			req:       createBlockRequest{},
			wantField: "card_id",
		},
		{
			name:      "malformed card id",
			req:       createBlockRequest{CardID: "not-a-uuid"},
			wantField: "card_id",
		},
		{
			name:      "reason over the limit",
			req:       createBlockRequest{CardID: cardID, Reason: &longReason},
			wantField: "reason",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			errs := tc.req.Validate()
			if tc.wantField == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Equal(t, tc.wantField, errs[0].Field)
		})
	}
}

func ptr(s string) *string { return &s }
