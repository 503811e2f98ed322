package fetcher

import (
	"math/rand/v2"
	"strings"
)

type UserAgentType string

const (
	UserAgentAuto    UserAgentType = "auto"
	UserAgentChrome  UserAgentType = "chrome"
	UserAgentFirefox UserAgentType = "firefox"
	UserAgentSafari  UserAgentType = "safari"
	UserAgentEdge    UserAgentType = "edge"
)

const fallbackUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

var userAgents = map[UserAgentType][]string{
	UserAgentChrome: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	},
	UserAgentFirefox: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14.7; rv:133.0) Gecko/20100101 Firefox/133.0",
		"Mozilla/5.0 (X11; Linux x86_64; rv:132.0) Gecko/20100101 Firefox/132.0",
	},
	UserAgentSafari: {
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_7_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 18_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Mobile/15E148 Safari/604.1",
	},
	UserAgentEdge: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
	},
}

// UserAgentSelector picks browser user agents. It is safe for concurrent use;
// image fallbacks fetch in parallel.
type UserAgentSelector struct {
	all []string
}

func NewUserAgentSelector() *UserAgentSelector {
	var all []string
	for _, t := range []UserAgentType{UserAgentChrome, UserAgentFirefox, UserAgentSafari, UserAgentEdge} {
		all = append(all, userAgents[t]...)
	}
	return &UserAgentSelector{all: all}
}

// GetUserAgent returns a random agent of the named browser type, a random one
// of any type for "auto" or "", and uaType itself when it is a custom string.
func (uas *UserAgentSelector) GetUserAgent(uaType string) string {
	uaType = strings.TrimSpace(uaType)
	switch t := UserAgentType(strings.ToLower(uaType)); t {
	case "", UserAgentAuto:
		return pick(uas.all)
	case UserAgentChrome, UserAgentFirefox, UserAgentSafari, UserAgentEdge:
		return pick(userAgents[t])
	default:
		return uaType
	}
}

func pick(agents []string) string {
	if len(agents) == 0 {
		return fallbackUserAgent
	}
	return agents[rand.IntN(len(agents))]
}
