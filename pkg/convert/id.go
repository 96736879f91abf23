package convert

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// TxExplorerURL is the transaction viewer the analytics backend links to.
const TxExplorerURL = "https://txr.agnostic.engineering"

// SyntheticID builds the identifier of a derived record that is never
// persisted by any backend. The key is "Entity:f1_f2_..." encoded as standard
// base64, so identical inputs always yield the same ID.
//
//	SyntheticID("AgnosticPool", "0xabc", "ETHEREUM") // base64("AgnosticPool:0xabc_ETHEREUM")
func SyntheticID(entity string, fields ...string) string {
	key := entity + ":" + strings.Join(fields, "_")
	return base64.StdEncoding.EncodeToString([]byte(key))
}

// StripQuotes removes every double quote. Token names and symbols sometimes
// arrive JSON-quoted twice.
func StripQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, "")
}

// TxURL links a transaction by block number and index within the block.
func TxURL(block, index string) string {
	return fmt.Sprintf("%s?block=%s&tx=%s", TxExplorerURL, block, index)
}
