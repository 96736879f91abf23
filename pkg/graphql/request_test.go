package graphql

import "testing"

func TestOperationNameOf(t *testing.T) {
	tests := []struct {
		name     string
		document string
		want     string
	}{
		{"named", "query TokenTVL($token: String!) { tvl }", "TokenTVL"},
		{"leading whitespace", "\n    query DailyProtocolTVL {\n  x\n}", "DailyProtocolTVL"},
		{"trailing fragment", "query TopV2PairsAfter { ...PairFields }\nfragment PairFields on Pair { id }", "TopV2PairsAfter"},
		{"mutation", "mutation Save { ok }", "Save"},
		{"anonymous", "{ token { symbol } }", ""},
		{"anonymous query", "query { token { symbol } }", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OperationNameOf(tt.document); got != tt.want {
				t.Errorf("OperationNameOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewRequest_NamesDeclaredOperation(t *testing.T) {
	req := NewRequest("\n  query TokenVolumeHistory($token: String!) { volume }\n")
	if req.OperationName != "TokenVolumeHistory" {
		t.Errorf("OperationName = %q, want TokenVolumeHistory", req.OperationName)
	}
}
