package builtin

import (
	"github.com/atriumhq/atrium/internal/extension/sdk"
)

// PrincipalCollection mounts the principal tree under the server root. DAV
// clients discover users and groups by walking this node.
type PrincipalCollection struct{}

// NewPrincipalCollection creates the principal collection.
func NewPrincipalCollection() *PrincipalCollection {
	return &PrincipalCollection{}
}

// CollectionName returns the name the node is mounted under.
func (c *PrincipalCollection) CollectionName() string {
	return "principals"
}

var _ sdk.Collection = (*PrincipalCollection)(nil)
