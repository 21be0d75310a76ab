package curriculum

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/stage/core"
)

func TestParseValidity(t *testing.T) {
	tests := []struct {
		in      string
		want    Validity
		wantErr bool
	}{
		{in: "valid", want: Valid},
		{in: " Invalid ", want: Invalid},
		{in: "PENDING", want: Pending},
		{in: "", wantErr: true},
		{in: "lol", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseValidity(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidity_bool(t *testing.T) {
	for _, v := range []Validity{Valid, Pending, Invalid} {
		assert.Equal(t, v, ValidityOf(v.Bool()), v.String())
	}
	assert.Nil(t, Pending.Bool())
	assert.True(t, *Valid.Bool())
	assert.False(t, *Invalid.Bool())
	assert.Equal(t, "unknown", Validity(42).String())
}

func TestValidity_JSON(t *testing.T) {
	cv := Curriculum{ID: "1", Validity: Invalid}
	data, err := json.Marshal(cv)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"validity":"invalid"`)

	var got Curriculum
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","validity":"valid"}`), &got))
	assert.Equal(t, Valid, got.Validity)

	assert.Error(t, json.Unmarshal([]byte(`{"validity":"maybe"}`), &got))

	_, err = json.Marshal(Curriculum{Validity: Validity(42)})
	assert.Error(t, err)
}

func TestNewCurriculum_Validate(t *testing.T) {
	validate, translator := core.NewValidator()
	pdf := []byte("%PDF-1.4")

	tests := []struct {
		name       string
		nc         NewCurriculum
		maxSize    int64
		wantFields map[string]string
	}{
		{
			name:       "empty",
			nc:         NewCurriculum{},
			wantFields: map[string]string{"student_id": "this field is required", "name": "this field is required", "content_type": "this field is required", "data": "this field is required"},
		},
		{
			name:       "blank name",
			nc:         NewCurriculum{StudentID: "1", Name: "   ", ContentType: "application/pdf", Data: pdf},
			wantFields: map[string]string{"name": "this field is required"},
		},
		{
			name:       "name too long",
			nc:         NewCurriculum{StudentID: "1", Name: strings.Repeat("a", 256), ContentType: "application/pdf", Data: pdf},
			wantFields: map[string]string{"name": "name must be a maximum of 255 characters in length"},
		},
		{
			name:       "not a pdf",
			nc:         NewCurriculum{StudentID: "1", Name: "cv", ContentType: "image/png", Data: pdf},
			wantFields: map[string]string{"content_type": "content_type must be one of [application/pdf]"},
		},
		{
			name:       "too large",
			nc:         NewCurriculum{StudentID: "1", Name: "cv", ContentType: "application/pdf", Data: pdf},
			maxSize:    4,
			wantFields: map[string]string{"data": "file is too large"},
		},
		{
			name: "valid",
			nc:   NewCurriculum{StudentID: "1", Name: " cv.pdf ", ContentType: "Application/PDF", Data: pdf},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nc.Validate(validate, tt.maxSize)
			if tt.wantFields == nil {
				require.NoError(t, err)
				assert.Equal(t, "cv.pdf", tt.nc.Name)
				return
			}
			vErr, ok := core.TranslateValidationErrors(err, translator).(*core.ValidationError)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.wantFields, vErr.FieldMap())
		})
	}
}
