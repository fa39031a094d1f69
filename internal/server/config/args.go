package config

import (
	"flag"
	"strings"
)

// pickArgs returns the subset of args that belongs to the named flags, in
// their original order. Names are given without dashes; "-x" and "--x" are
// both recognised, as the flag package does. A bare flag takes the next
// argument as its value unless that argument starts with a dash.
func pickArgs(args []string, names ...string) []string {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}

	picked := []string{}
	for i := 0; i < len(args); i++ {
		name, hasValue, ok := flagName(args[i])
		if !ok || !known[name] {
			continue
		}
		picked = append(picked, args[i])
		if !hasValue && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			picked = append(picked, args[i])
		}
	}
	return picked
}

// flagName splits "-name", "--name" or "--name=value".
func flagName(arg string) (name string, hasValue, ok bool) {
	if !strings.HasPrefix(arg, "-") {
		return "", false, false
	}
	name = strings.TrimPrefix(strings.TrimPrefix(arg, "-"), "-")
	if i := strings.IndexByte(name, '='); i >= 0 {
		name, hasValue = name[:i], true
	}
	return name, hasValue, name != ""
}

// configFilePath reads -c / -config from args. Empty when absent.
func configFilePath(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(pickArgs(args, "c", "config"))

	return path
}
