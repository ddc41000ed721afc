package booking

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
)

const orderNumberPrefix = "AV-"

type OrderNumberGenerator struct {
	node *snowflake.Node
}

func NewOrderNumberGenerator(nodeID int64) (*OrderNumberGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("creating snowflake node %d: %w", nodeID, err)
	}
	return &OrderNumberGenerator{node: node}, nil
}

func (g *OrderNumberGenerator) Next() string {
	return orderNumberPrefix + strings.ToUpper(g.node.Generate().Base36())
}
