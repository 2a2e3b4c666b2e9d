package connect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServiceCall(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		domain    string
		service   string
		data      map[string]any
		entityIDs []string
		wantErr   bool
	}{
		{
			name: "target with entity list",
			raw: `{"id":5,"type":"event","event":{"event_type":"call_service","data":{
				"domain":"wemo","service":"set_humidity",
				"service_data":{"target_humidity":50},
				"target":{"entity_id":["fan.humidifier"]}}}}`,
			domain:    "wemo",
			service:   "set_humidity",
			data:      map[string]any{"target_humidity": float64(50)},
			entityIDs: []string{"fan.humidifier"},
		},
		{
			name: "target with single entity string",
			raw: `{"id":5,"type":"event","event":{"event_type":"call_service","data":{
				"domain":"wemo","service":"reset_filter_life",
				"target":{"entity_id":"fan.humidifier"}}}}`,
			domain:    "wemo",
			service:   "reset_filter_life",
			data:      map[string]any{},
			entityIDs: []string{"fan.humidifier"},
		},
		{
			name: "legacy entity_id inside service_data",
			raw: `{"id":5,"type":"event","event":{"event_type":"call_service","data":{
				"domain":"wemo","service":"crockpot_update_settings",
				"service_data":{"entity_id":["switch.crockpot"],"mode":"50","time":"300"}}}}`,
			domain:    "wemo",
			service:   "crockpot_update_settings",
			data:      map[string]any{"mode": "50", "time": "300"},
			entityIDs: []string{"switch.crockpot"},
		},
		{
			name: "no targets at all",
			raw: `{"id":5,"type":"event","event":{"event_type":"call_service","data":{
				"domain":"wemo","service":"reset_filter_life"}}}`,
			domain:  "wemo",
			service: "reset_filter_life",
			data:    map[string]any{},
		},
		{
			name:    "wrong event type",
			raw:     `{"id":5,"type":"event","event":{"event_type":"state_changed","data":{}}}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			raw:     `{"event":`,
			wantErr: true,
		},
		{
			name: "entity_id with non-string member",
			raw: `{"id":5,"type":"event","event":{"event_type":"call_service","data":{
				"domain":"wemo","service":"set_humidity",
				"service_data":{"entity_id":[42]}}}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, err := ParseServiceCall([]byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.domain, call.Domain)
			assert.Equal(t, tt.service, call.Service)
			assert.Equal(t, tt.data, call.Data)
			assert.Equal(t, tt.entityIDs, call.EntityIDs)
		})
	}
}
