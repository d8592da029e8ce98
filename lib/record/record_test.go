package record

import "testing"

func TestExpired(t *testing.T) {
	now := int64(1000)

	tests := []struct {
		name    string
		rec     ExpireRecord
		expired bool
	}{
		{"future deadline", ExpireRecord{Timestamp: 900, ValidUntil: 1100}, false},
		{"deadline equals now", ExpireRecord{Timestamp: 900, ValidUntil: 1000}, false},
		{"deadline one second past", ExpireRecord{Timestamp: 900, ValidUntil: 999}, true},
		{"missing deadline", ExpireRecord{Timestamp: 900}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Expired(now); got != tt.expired {
				t.Errorf("Expired(%d) = %t, expected %t", now, got, tt.expired)
			}
		})
	}
}

func TestCompositeKey(t *testing.T) {
	if got := CompositeKey("sessions", "user:42"); got != "sessions_user:42" {
		t.Errorf("CompositeKey = %q, expected %q", got, "sessions_user:42")
	}
}
