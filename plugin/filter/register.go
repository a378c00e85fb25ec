package filter

import (
	"fmt"
	"regexp"

	"github.com/sshlog/agent/plugin"
)

// Register adds every built-in filter factory to reg under the same
// names plugin_factory.py's search_plugins() would discover them
// under (e.g. "command_name_filter", "require_tty_filter").
func Register(reg *plugin.Registry) {
	reg.RegisterFilter("command_name_filter", func(arg interface{}) (plugin.Filter, error) {
		m, err := toStringList(arg)
		if err != nil {
			return nil, err
		}
		return CommandName{Match: m}, nil
	})
	reg.RegisterFilter("command_name_regex_filter", func(arg interface{}) (plugin.Filter, error) {
		re, err := toRegexp(arg)
		if err != nil {
			return nil, err
		}
		return CommandNameRegex{Pattern: re}, nil
	})
	reg.RegisterFilter("command_exit_code_filter", func(arg interface{}) (plugin.Filter, error) {
		if codes, ok := toIntListIfList(arg); ok {
			return CommandExitCode{Codes: codes}, nil
		}
		expr, err := toString(arg)
		if err != nil {
			return nil, err
		}
		return CommandExitCode{Comparison: expr}, nil
	})
	reg.RegisterFilter("command_output_contains_filter", func(arg interface{}) (plugin.Filter, error) {
		s, err := toString(arg)
		if err != nil {
			return nil, err
		}
		return CommandOutputContains{Substring: s}, nil
	})
	reg.RegisterFilter("command_output_contains_regex_filter", func(arg interface{}) (plugin.Filter, error) {
		re, err := toRegexp(arg)
		if err != nil {
			return nil, err
		}
		return CommandOutputContainsRegex{Pattern: re}, nil
	})
	reg.RegisterFilter("upload_file_path_filter", func(arg interface{}) (plugin.Filter, error) {
		s, err := toString(arg)
		if err != nil {
			return nil, err
		}
		return UploadFilePath{ExpectedPath: s}, nil
	})
	reg.RegisterFilter("upload_file_path_regex_filter", func(arg interface{}) (plugin.Filter, error) {
		re, err := toRegexp(arg)
		if err != nil {
			return nil, err
		}
		return UploadFilePathRegex{Pattern: re}, nil
	})
	reg.RegisterFilter("ignore_existing_logins_filter", func(arg interface{}) (plugin.Filter, error) {
		enabled, err := toBool(arg)
		if err != nil {
			return nil, err
		}
		return IgnoreExistingLogins{Enabled: enabled}, nil
	})
	reg.RegisterFilter("require_tty_filter", func(arg interface{}) (plugin.Filter, error) {
		enabled, err := toBool(arg)
		if err != nil {
			return nil, err
		}
		return RequireTTY{Enabled: enabled}, nil
	})
	reg.RegisterFilter("username_filter", func(arg interface{}) (plugin.Filter, error) {
		m, err := toStringList(arg)
		if err != nil {
			return nil, err
		}
		return Username{Match: m}, nil
	})
	reg.RegisterFilter("username_regex_filter", func(arg interface{}) (plugin.Filter, error) {
		re, err := toRegexp(arg)
		if err != nil {
			return nil, err
		}
		return UsernameRegex{Pattern: re}, nil
	})
}

func toString(arg interface{}) (string, error) {
	s, ok := arg.(string)
	if !ok {
		return "", fmt.Errorf("filter: expected a scalar value, got %T", arg)
	}
	return s, nil
}

func toBool(arg interface{}) (bool, error) {
	switch v := arg.(type) {
	case bool:
		return v, nil
	case nil:
		return true, nil
	default:
		return false, fmt.Errorf("filter: expected a boolean value, got %T", arg)
	}
}

func toRegexp(arg interface{}) (*regexp.Regexp, error) {
	s, err := toString(arg)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(s)
	if err != nil {
		return nil, fmt.Errorf("filter: compiling regex %q: %w", s, err)
	}
	return re, nil
}

func toStringList(arg interface{}) ([]string, error) {
	switch v := arg.(type) {
	case string:
		return []string{v}, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("filter: expected a string list entry, got %T", e)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("filter: expected a string or string list, got %T", arg)
	}
}

func toIntListIfList(arg interface{}) ([]int, bool) {
	list, ok := arg.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]int, 0, len(list))
	for _, e := range list {
		switch n := e.(type) {
		case int:
			out = append(out, n)
		case float64:
			out = append(out, int(n))
		default:
			return nil, false
		}
	}
	return out, true
}
