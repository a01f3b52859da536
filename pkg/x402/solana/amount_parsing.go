package solana

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go/rpc"
)

// extractInstructionInfo extracts the info and type from a parsed instruction.
func extractInstructionInfo(inst *rpc.ParsedInstruction) (map[string]interface{}, string, error) {
	payload, err := inst.Parsed.MarshalJSON()
	if err != nil {
		return nil, "", err
	}
	var decoded struct {
		Info map[string]interface{} `json:"info"`
		Type string                 `json:"type"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, "", err
	}
	if decoded.Info == nil {
		return nil, decoded.Type, errors.New("instruction info missing")
	}
	return decoded.Info, decoded.Type, nil
}

// parseAmountSmallestUnit extracts a token amount from parsed instruction info
// as the exact integer number of smallest units (invariant 1: no float64 on
// the comparison path).
func parseAmountSmallestUnit(info map[string]interface{}) (*big.Int, error) {
	if tokenAmount, ok := mapValue(info["tokenAmount"]); ok {
		if raw := stringValue(tokenAmount["amount"]); raw != "" {
			if v, ok := new(big.Int).SetString(raw, 10); ok {
				return v, nil
			}
		}
	}
	if raw := stringValue(info["amount"]); raw != "" {
		if v, ok := new(big.Int).SetString(raw, 10); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("token amount missing or not an integer string")
}

// mapValue safely extracts a map from an interface{}.
func mapValue(value interface{}) (map[string]interface{}, bool) {
	m, ok := value.(map[string]interface{})
	return m, ok
}

// stringValue safely extracts a string from an interface{}.
func stringValue(value interface{}) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
