package collision

import (
	"fmt"

	"github.com/milk9111/physics2d/common"
)

// Filter decides which bodies may interact, by layer bitmasks and an optional group override.
type Filter struct {
	BelongsTo    uint32
	CollidesWith uint32
	// GroupIndex overrides the masks when both filters share it: positive always
	// collides, negative never collides.
	GroupIndex int32
}

var (
	DefaultFilter = Filter{BelongsTo: ^uint32(0), CollidesWith: ^uint32(0)}
	ZeroFilter    = Filter{}
)

// IsEmpty reports whether the filter can never collide with anything.
func (f Filter) IsEmpty() bool {
	return f.BelongsTo == 0 || f.CollidesWith == 0
}

// IsCollisionEnabled reports whether two filters allow an interaction. It is symmetric.
func IsCollisionEnabled(a, b Filter) bool {
	if a.GroupIndex == b.GroupIndex && a.GroupIndex != 0 {
		return a.GroupIndex > 0
	}
	return a.BelongsTo&b.CollidesWith != 0 && b.BelongsTo&a.CollidesWith != 0
}

// CreateUnion returns a filter accepting everything either input accepts.
func CreateUnion(a, b Filter) Filter {
	f := Filter{
		BelongsTo:    a.BelongsTo | b.BelongsTo,
		CollidesWith: a.CollidesWith | b.CollidesWith,
	}
	if a.GroupIndex == b.GroupIndex {
		f.GroupIndex = a.GroupIndex
	}
	return f
}

// CreateMask builds a bitmask from layer indices in [0,32]. Layer 32 wraps onto bit 0.
func CreateMask(layers ...int) (uint32, error) {
	var mask uint32
	for _, layer := range layers {
		if layer < 0 || layer > 32 {
			return 0, fmt.Errorf("collision: create mask: layer %d not in [0,32]: %w", layer, common.ErrInvalidArgument)
		}
		mask |= uint32(1) << (uint(layer) % 32)
	}
	return mask, nil
}
