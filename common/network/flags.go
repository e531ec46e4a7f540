package network

import "strings"

type Flags uint32

const FlagDefault Flags = 0

const (
	FlagConnect Flags = 1 << iota
	FlagListen
	FlagMulticast
	// FlagNoDelay disables Nagle and coalesces writes in a ring buffer until Flush.
	FlagNoDelay
	FlagNoReuse
	// FlagUseGlobalSettings replaces FlagNoDelay with the context's setting.
	FlagUseGlobalSettings
)

func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

func (f Flags) String() string {
	if f == FlagDefault {
		return "default"
	}
	var names []string
	for _, entry := range []struct {
		flag Flags
		name string
	}{
		{FlagConnect, "connect"},
		{FlagListen, "listen"},
		{FlagMulticast, "multicast"},
		{FlagNoDelay, "nodelay"},
		{FlagNoReuse, "noreuse"},
		{FlagUseGlobalSettings, "global"},
	} {
		if f&entry.flag != 0 {
			names = append(names, entry.name)
		}
	}
	return strings.Join(names, "|")
}
