package offer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/stage/core"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{in: "cv_sent", want: StatusCVSent},
		{in: " Awaiting_Reply ", want: StatusAwaitingReply},
		{in: "accepted", want: StatusAccepted},
		{in: "REFUSED", want: StatusRefused},
		{in: "", wantErr: true},
		{in: "hired", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus(t *testing.T) {
	assert.False(t, StatusCVSent.Decided())
	assert.False(t, StatusAwaitingReply.Decided())
	assert.True(t, StatusAccepted.Decided())
	assert.True(t, StatusRefused.Decided())
	assert.Equal(t, "unknown", Status(-1).String())

	data, err := json.Marshal(Application{ID: "1", Status: StatusAwaitingReply})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"awaiting_reply"`)
	assert.Contains(t, string(data), `"interview_date":null`)

	var got Application
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","status":"refused"}`), &got))
	assert.Equal(t, StatusRefused, got.Status)
	assert.Error(t, json.Unmarshal([]byte(`{"status":"hired"}`), &got))

	_, err = json.Marshal(Application{Status: Status(42)})
	assert.Error(t, err)
}

func TestNewOffer_Validate(t *testing.T) {
	validate, translator := core.NewValidator()
	valid := func() NewOffer {
		return NewOffer{
			CreatorID:   "1",
			Title:       " Développeur Go ",
			Description: "Stage de 15 semaines.",
			Department:  "Informatique",
			Address:     "1 rue du Stage",
			Salary:      21.5,
		}
	}

	tests := []struct {
		name       string
		no         func() NewOffer
		wantFields map[string]string
	}{
		{
			name: "empty",
			no:   func() NewOffer { return NewOffer{} },
			wantFields: map[string]string{
				"creator_id":  "this field is required",
				"title":       "this field is required",
				"description": "this field is required",
				"department":  "this field is required",
				"address":     "this field is required",
			},
		},
		{
			name: "blank title",
			no: func() NewOffer {
				no := valid()
				no.Title = "  "
				return no
			},
			wantFields: map[string]string{"title": "this field is required"},
		},
		{
			name: "title too long",
			no: func() NewOffer {
				no := valid()
				no.Title = strings.Repeat("a", 256)
				return no
			},
			wantFields: map[string]string{"title": "title must be a maximum of 255 characters in length"},
		},
		{
			name: "negative salary",
			no: func() NewOffer {
				no := valid()
				no.Salary = -1
				return no
			},
			wantFields: map[string]string{"salary": "salary must be 0 or greater"},
		},
		{name: "valid", no: valid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			no := tt.no()
			err := no.Validate(validate)
			if tt.wantFields == nil {
				require.NoError(t, err)
				assert.Equal(t, "Développeur Go", no.Title)
				return
			}
			vErr, ok := core.TranslateValidationErrors(err, translator).(*core.ValidationError)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.wantFields, vErr.FieldMap())
		})
	}
}
