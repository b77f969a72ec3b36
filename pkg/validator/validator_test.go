package validator

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ratingPayload struct {
	Score  int    `json:"score" validate:"required,min=1,max=5"`
	ToolID string `json:"tool_id" validate:"required,uuid"`
}

func TestValidate_Success(t *testing.T) {
	p := ratingPayload{Score: 4, ToolID: "6a1f9f36-58cb-44ab-ae34-6081500a61a4"}
	assert.NoError(t, Validate(p))
}

func TestValidate_FieldErrors(t *testing.T) {
	p := ratingPayload{Score: 9, ToolID: "not-a-uuid"}

	err := Validate(p)
	require.Error(t, err)

	valErr, ok := err.(*ValidationError)
	require.True(t, ok)

	fields := valErr.Fields()
	assert.Contains(t, fields, "Score")
	assert.Contains(t, fields, "ToolID")
	assert.Equal(t, "must be at most 5", fields["Score"])
	assert.Equal(t, "must be a valid UUID", fields["ToolID"])
}

func TestValidate_MissingRequired(t *testing.T) {
	err := Validate(ratingPayload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is required")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"score": 5, "tool_id": "6a1f9f36-58cb-44ab-ae34-6081500a61a4"}`
	r := httptest.NewRequest("POST", "/", strings.NewReader(body))

	var p ratingPayload
	require.NoError(t, DecodeAndValidate(r, &p))
	assert.Equal(t, 5, p.Score)
}

func TestDecodeAndValidate_MalformedJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"score":`))

	var p ratingPayload
	err := DecodeAndValidate(r, &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}
