package integration

import "fmt"

// Factory constructs a Definition from a configuration block. The block is
// parsed against the integration's config model; schema violations fail
// with ErrConfigInvalid.
type Factory func(block map[string]interface{}) (Definition, error)

// Factories returns the compile-time table of configurable integrations.
// Configuration resolves integrations through this table by string key; no
// reflection is involved.
func Factories() map[string]Factory {
	return map[string]Factory{
		"notion": func(block map[string]interface{}) (Definition, error) {
			cfg, err := decodeOAuth2Config(block)
			if err != nil {
				return nil, err
			}
			return NewNotion(cfg), nil
		},
		"mock_oauth2": func(block map[string]interface{}) (Definition, error) {
			cfg, err := decodeOAuth2Config(block)
			if err != nil {
				return nil, err
			}
			return NewMockOAuth2(cfg), nil
		},
	}
}

func decodeOAuth2Config(block map[string]interface{}) (OAuth2Config, error) {
	var cfg OAuth2Config
	if err := DecodeStrict(block, &cfg); err != nil {
		return OAuth2Config{}, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	return cfg, nil
}
