// Package smartplaylist runs the smart playlist pipeline: retrieval,
// enrichment, rule filtering, ordering and limiting.
package smartplaylist

import (
	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/smartlist/internal/app/limit"
	"github.com/osa030/smartlist/internal/app/order"
	"github.com/osa030/smartlist/internal/app/rule"
)

// Settings is a compiled playlist request.
type Settings struct {
	Rules   []rule.Rule
	Order   order.Spec
	Limit   limit.Spec
	Preview bool
}

// shapingParams holds the non-rule request keys.
type shapingParams struct {
	OrderField     string  `mapstructure:"playlistOrderField"`
	OrderDirection string  `mapstructure:"playlistOrderDirection"`
	LimitType      string  `mapstructure:"playlistLimitType"`
	LimitValue     float64 `mapstructure:"playlistLimitValue"`
}

// ParseSettings compiles a flat request mapping. Rule errors are fatal;
// malformed order or limit values only disable that feature.
func ParseSettings(params map[string]string, preview bool) (*Settings, error) {
	rules, err := rule.Compile(params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compile rules")
	}

	shaping, err := decodeShaping(params)
	if err != nil {
		zlog.Warn().Msgf("ignoring malformed order/limit parameters: %v", err)
	}

	return &Settings{
		Rules:   rules,
		Order:   order.Parse(shaping.OrderField, shaping.OrderDirection),
		Limit:   limit.Parse(shaping.LimitType, shaping.LimitValue),
		Preview: preview,
	}, nil
}

// decodeShaping decodes whatever fields it can; a field that fails to
// decode is left at its zero value.
func decodeShaping(params map[string]string) (shapingParams, error) {
	var shaping shapingParams

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &shaping,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return shaping, errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(params); err != nil {
		return shaping, errors.Wrap(err, "failed to decode settings")
	}
	return shaping, nil
}
