package rems_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daisy-gov/daisy/internal/rems"
)

func TestNotification_Decode(t *testing.T) {
	var items []rems.Notification
	err := json.Unmarshal([]byte(`[
		{"application": 7, "resource": "ACC-1", "user": "u1", "mail": "a@x.com", "end": null},
		{"application": 8, "resource": "ACC-2", "user": "u2", "mail": "b@x.com", "end": "2027-03-01T00:00:00.000Z"}
	]`), &items)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(7), items[0].Application)
	assert.Empty(t, items[0].End)
}

func TestNotification_EndDate(t *testing.T) {
	tests := []struct {
		name   string
		end    string
		want   time.Time
		wantOK bool
		hasErr bool
	}{
		{name: "absent"},
		{name: "date only", end: "2027-03-01", want: time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC), wantOK: true},
		{name: "timestamp", end: "2027-03-01T10:00:00.000Z", want: time.Date(2027, 3, 1, 10, 0, 0, 0, time.UTC), wantOK: true},
		{name: "garbage", end: "next week", hasErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := rems.Notification{End: tt.end}.EndDate()
			if tt.hasErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, tt.want.Equal(got))
		})
	}
}

func TestNotification_Validate(t *testing.T) {
	assert.NoError(t, rems.Notification{Resource: "ACC-1", User: "u1"}.Validate())
	assert.Error(t, rems.Notification{User: "u1"}.Validate())
	assert.Error(t, rems.Notification{Resource: "ACC-1"}.Validate())
}
