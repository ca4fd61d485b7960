package event

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePush(t *testing.T) {
	body := `{"message":{"data":"` + EncodeData("u1-100.mp4") + `","messageId":"42"},"subscription":"projects/p/subscriptions/s"}`

	p, err := ParsePush(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "u1-100.mp4", p.Name)
}

func TestParsePush_Invalid(t *testing.T) {
	b64 := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name string
		body string
	}{
		{"not json", `not json`},
		{"missing message", `{}`},
		{"empty data", `{"message":{"data":""}}`},
		{"data not base64", `{"message":{"data":"%%%"}}`},
		{"payload not json", `{"message":{"data":"` + b64("nope") + `"}}`},
		{"payload without name", `{"message":{"data":"` + b64(`{"other":"x"}`) + `"}}`},
		{"blank name", `{"message":{"data":"` + b64(`{"name":"   "}`) + `"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePush(strings.NewReader(tt.body))
			assert.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}

func TestParseQueueBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"plain name", `{"name":"a.mp4"}`, "a.mp4", false},
		{"name is trimmed", `{"name":" a.mp4 "}`, "a.mp4", false},
		{"base64 data", `{"data":"` + EncodeData("b.mp4") + `"}`, "b.mp4", false},
		{"name wins over data", `{"name":"a.mp4","data":"` + EncodeData("b.mp4") + `"}`, "a.mp4", false},
		{"empty object", `{}`, "", true},
		{"invalid json", `{"name":`, "", true},
		{"bad data", `{"data":"!!"}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseQueueBody(tt.body)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMessage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name)
		})
	}
}

func TestEncodeData_RoundTrip(t *testing.T) {
	p, err := DecodeData(EncodeData("uid-1.mov"))
	require.NoError(t, err)
	assert.Equal(t, "uid-1.mov", p.Name)
}
