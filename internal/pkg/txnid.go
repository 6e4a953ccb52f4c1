package pkg

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

const TxnIDPrefix = "TXN"

// TxnIDGenerator issues human readable transaction identifiers. Snowflake ids are
// unique per node id, so every running instance must be configured with its own node.
type TxnIDGenerator struct {
	node *snowflake.Node
}

func NewTxnIDGenerator(nodeID int64) (*TxnIDGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node %d: %w", nodeID, err)
	}
	return &TxnIDGenerator{node: node}, nil
}

func (g *TxnIDGenerator) NextTxnID() string {
	return TxnIDPrefix + g.node.Generate().String()
}
