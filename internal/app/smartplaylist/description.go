package smartplaylist

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/osa030/smartlist/internal/app/limit"
	"github.com/osa030/smartlist/internal/app/order"
)

// Description summarizes the applied limit and order, for example
// "Limited to 30 minutes. Sorted by popularity in descending order."
// It returns an empty string when neither is enabled.
func Description(l limit.Spec, o order.Spec) string {
	var parts []string

	if l.Enabled {
		value := l.RawValue
		if l.Kind == limit.KindSongs {
			value = float64(l.Value)
		}
		unit := l.RawUnit
		if value == 1 {
			unit = strings.TrimSuffix(unit, "s")
		}
		parts = append(parts, fmt.Sprintf("Limited to %s %s.", strconv.FormatFloat(value, 'f', -1, 64), unit))
	}

	if o.Enabled {
		parts = append(parts, fmt.Sprintf("Sorted by %s in %s order.", o.Field.Label(), o.Direction))
	}

	return strings.Join(parts, " ")
}
