package arena

import "memris/errs"

// Config holds the engine-wide tunables recognized at arena construction
// (spec §6). PageSize, MaxPages and InitialPages are validated and
// carried on Config, but none of them is read by column.Column, which
// grows by doubling from a fixed initial capacity of 64 rows; they have
// no effect on allocation.
type Config struct {
	PageSize          int
	MaxPages          int
	InitialPages      int
	EnablePrefixIndex bool
	EnableSuffixIndex bool
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		PageSize:          4096,
		EnablePrefixIndex: true,
		EnableSuffixIndex: true,
	}
}

var recognizedOptions = map[string]bool{
	"page_size":           true,
	"max_pages":           true,
	"initial_pages":       true,
	"enable_prefix_index": true,
	"enable_suffix_index": true,
}

// ConfigFromOptions builds a Config from a loosely typed option map (as
// decoded from TOML or JSON), starting from DefaultConfig. Any key
// outside the recognized set is an InvalidArgument, per spec §6
// ("Unrecognized options are an error").
func ConfigFromOptions(opts map[string]any) (Config, error) {
	cfg := DefaultConfig()
	for k, v := range opts {
		if !recognizedOptions[k] {
			return Config{}, errs.Newf("arena.ConfigFromOptions", errs.InvalidArgument, "unrecognized configuration option %q", k)
		}
		var err error
		switch k {
		case "page_size":
			cfg.PageSize, err = toOptionInt(k, v)
		case "max_pages":
			cfg.MaxPages, err = toOptionInt(k, v)
		case "initial_pages":
			cfg.InitialPages, err = toOptionInt(k, v)
		case "enable_prefix_index":
			cfg.EnablePrefixIndex, err = toOptionBool(k, v)
		case "enable_suffix_index":
			cfg.EnableSuffixIndex, err = toOptionBool(k, v)
		}
		if err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func toOptionInt(key string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	default:
		return 0, errs.Newf("arena.ConfigFromOptions", errs.InvalidArgument, "option %q must be an integer, got %T", key, v)
	}
}

func toOptionBool(key string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, errs.Newf("arena.ConfigFromOptions", errs.InvalidArgument, "option %q must be a bool, got %T", key, v)
	}
	return b, nil
}
