package sysconfig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidroman0O/ntpconf/errors"
	"github.com/davidroman0O/ntpconf/target"
)

const sysconfigNtp = `## Path:           Network/NTP
## Description:    Network Time Protocol (NTP) server settings
## Type:           yesno
## Default:        yes
#
# Shall the time server ntpd run in the chroot jail /var/lib/ntp?
#
NTPD_RUN_CHROOTED="yes"

NTPD_OPTIONS='-g -u ntp:ntp'
`

func TestParseAndGet(t *testing.T) {
	f := Parse("/etc/sysconfig/ntp", sysconfigNtp)

	v, ok := f.Get("NTPD_RUN_CHROOTED")
	assert.True(t, ok)
	assert.Equal(t, "yes", v)
	assert.Equal(t, "-g -u ntp:ntp", f.GetDefault("NTPD_OPTIONS", ""))
	assert.Equal(t, "fallback", f.GetDefault("MISSING", "fallback"))
	assert.Equal(t, sysconfigNtp, f.String())
	assert.False(t, f.Changed())
}

func TestSetRewritesOnlyItsLine(t *testing.T) {
	f := Parse("/etc/sysconfig/ntp", sysconfigNtp)

	f.Set("NTPD_RUN_CHROOTED", "yes")
	assert.False(t, f.Changed())

	f.Set("NTPD_RUN_CHROOTED", "no")
	f.Set("NTPD_EXTRA", `say "hi" $HOME`)
	assert.True(t, f.Changed())

	expected := `## Path:           Network/NTP
## Description:    Network Time Protocol (NTP) server settings
## Type:           yesno
## Default:        yes
#
# Shall the time server ntpd run in the chroot jail /var/lib/ntp?
#
NTPD_RUN_CHROOTED="no"

NTPD_OPTIONS='-g -u ntp:ntp'
NTPD_EXTRA="say \"hi\" \$HOME"
`
	assert.Equal(t, expected, f.String())

	again := Parse("/etc/sysconfig/ntp", f.String())
	v, _ := again.Get("NTPD_EXTRA")
	assert.Equal(t, `say "hi" $HOME`, v)
}

func TestLoadAndSave(t *testing.T) {
	ctx := context.Background()
	fs := target.NewMemory(map[string]string{"/etc/sysconfig/network/config": "NETCONFIG_NTP_POLICY=\"auto\"\n"})

	f, err := Load(ctx, fs, "/etc/sysconfig/network/config")
	require.NoError(t, err)
	assert.Equal(t, "auto", f.GetDefault("NETCONFIG_NTP_POLICY", ""))

	// unchanged files are not written
	fs.FailWrites = assert.AnError
	require.NoError(t, f.Save(ctx, fs))

	f.Set("NETCONFIG_NTP_POLICY", "")
	err = f.Save(ctx, fs)
	require.Error(t, err)
	assert.True(t, errors.IsWrite(err))

	fs.FailWrites = nil
	require.NoError(t, f.Save(ctx, fs))
	assert.Equal(t, "NETCONFIG_NTP_POLICY=\"\"\n", fs.Content("/etc/sysconfig/network/config"))
	assert.False(t, f.Changed())

	missing, err := Load(ctx, fs, "/etc/sysconfig/ntp")
	require.NoError(t, err)
	assert.Equal(t, "", missing.String())
	_, ok := missing.Get("NTPD_RUN_CHROOTED")
	assert.False(t, ok)
}

func TestBool(t *testing.T) {
	assert.True(t, Bool("yes"))
	assert.True(t, Bool(" YES "))
	assert.False(t, Bool("no"))
	assert.False(t, Bool(""))
	assert.Equal(t, "yes", YesNo(true))
	assert.Equal(t, "no", YesNo(false))
}
