package triageapi

import (
	"strings"
	"testing"
)

func TestDecodeRequest_TrailingData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"single object", validBody, false},
		{"trailing whitespace", validBody + "\n\t \n", false},
		{"trailing garbage", validBody + "garbage", true},
		{"trailing brace", validBody + "}", true},
		{"two objects", validBody + validBody, true},
		{"trailing number", validBody + " 1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req, problems, err := decodeRequest(strings.NewReader(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got request %+v", req)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeRequest: %v", err)
			}
			if len(problems) != 0 {
				t.Fatalf("problems = %v", problems)
			}
			if req.PatientID != "P-001" || req.Vitals.BPSystolic != 180 {
				t.Errorf("request = %+v", req)
			}
		})
	}
}
