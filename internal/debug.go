package internal

import (
	"log/slog"
	"os"
	"os/user"
	"regexp"
	"sort"
	"strings"

	"github.com/earthboundkid/versioninfo/v2"
	"github.com/lmittmann/tint"
)

var sensitiveRegex = regexp.MustCompile(`(?i)(PASSWORD|TOKEN|API_KEY|SECRET)`)

func Version() string {
	return versioninfo.Short()
}

// StartupInfo logs the version, the process identity and the settings a
// long running service was started with.
func StartupInfo(c Config) {
	slog.Info("png-scrubber", "version", Version(), "pid", os.Getpid())

	if u, err := user.Current(); err != nil {
		slog.Warn("Error getting current user", tint.Err(err))
	} else {
		slog.Debug("User", "uid", u.Uid, "name", u.Username, "gid", u.Gid)
	}

	slog.Info("Config",
		"output-dir", c.OutputDir,
		"workers", c.Workers,
		"keep-names", c.KeepNames != nil && *c.KeepNames,
		"lenient", c.Lenient,
	)

	for _, kv := range relevantEnv(os.Environ()) {
		slog.Debug("Environment", "key", kv[0], "value", kv[1])
	}
}

// relevantEnv returns the PNG_SCRUBBER_* variables sorted by key, with
// sensitive values masked.
func relevantEnv(environ []string) [][2]string {
	vars := make([][2]string, 0)
	for _, entry := range environ {
		key, value, _ := strings.Cut(entry, "=")
		if !strings.HasPrefix(key, "PNG_SCRUBBER_") {
			continue
		}
		if sensitiveRegex.MatchString(key) {
			value = "********"
		}
		vars = append(vars, [2]string{key, value})
	}
	sort.Slice(vars, func(i, j int) bool {
		return vars[i][0] < vars[j][0]
	})
	return vars
}
