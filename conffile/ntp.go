package conffile

import (
	"github.com/davidroman0O/ntpconf/lens"
	"github.com/davidroman0O/ntpconf/target"
)

// DefaultNtpConfPath is where ntpd reads its configuration
const DefaultNtpConfPath = "/etc/ntp.conf"

var ntpCollectionKeys = []string{
	"action",
	"controlkey",
	"server",
	"peer",
	"broadcast",
	"broadcastclient",
	"manycast",
	"manycastclient",
	"multicastclient",
	"fudge",
	"pool",
	"restrict",
	"requestkey",
	"tinker",
	"trustedkey",
	"#comment",
}

// ntpKinds is every kind but refclock, which only chrony has
var ntpKinds = func() []Kind {
	var out []Kind
	for _, k := range AllKinds() {
		if k != KindRefclock {
			out = append(out, k)
		}
	}
	return out
}()

// NtpConf is the model of /etc/ntp.conf
type NtpConf struct {
	model
}

// NewNtpConf binds an empty model to path on fs. An empty path selects
// DefaultNtpConfPath. Call Load to read the file.
func NewNtpConf(fs target.FS, path string) *NtpConf {
	if path == "" {
		path = DefaultNtpConfPath
	}
	return &NtpConf{model: newModel(fs, path, lens.NTP, ntpKinds, ntpCollectionKeys)}
}
