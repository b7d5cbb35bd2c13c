package complaint

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"time"

	"civicdesk/backend/internal/models"
)

// baseBlock keeps generated block numbers in a realistic looking range.
const baseBlock = 18_000_000

// stampProvenance fills the display-only ledger fields. Nothing is
// committed anywhere; the values only look like a transaction receipt.
func stampProvenance(c *models.Complaint, now time.Time) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	c.TransactionHash = "0x" + hex.EncodeToString(buf)

	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		panic(err)
	}
	c.BlockNumber = baseBlock + n.Int64()
	c.BlockchainTimestamp = now
}
