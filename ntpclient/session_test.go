package ntpclient

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidroman0O/ntpconf/conffile"
	"github.com/davidroman0O/ntpconf/errors"
	"github.com/davidroman0O/ntpconf/lens"
	"github.com/davidroman0O/ntpconf/target"
	"github.com/davidroman0O/ntpconf/tree"
)

const sessionSample = `# local clock

server 127.127.1.0              # local clock (LCL)
fudge  127.127.1.0 stratum 10   # LCL is unsynchronized

server 0.opensuse.pool.ntp.org iburst
server 1.opensuse.pool.ntp.org iburst
server 2.opensuse.pool.ntp.org iburst
server 3.opensuse.pool.ntp.org iburst

restrict -4 default notrap nomodify nopeer noquery
restrict 127.0.0.1

driftfile /var/lib/ntp/drift/ntp.drift
`

type fakeService struct {
	calls int
	err   error
}

func (f *fakeService) Restart(context.Context) error {
	f.calls++
	return f.err
}

func newTestSession(t *testing.T, ntpConf string, opts ...Option) (*Session, *target.Memory) {
	t.Helper()
	fs := target.NewMemory(map[string]string{conffile.DefaultNtpConfPath: ntpConf})
	s := NewSession(fs, opts...)
	require.NoError(t, s.Read(context.Background()))
	return s, fs
}

func TestSessionRead(t *testing.T) {
	s, _ := newTestSession(t, sessionSample)
	assert.True(t, s.ConfigRead())
	assert.False(t, s.Modified())

	recs := s.GetSyncRecords()
	require.Len(t, recs, 5)
	assert.Equal(t, SyncRecord{
		Type:         TypeClock,
		Address:      "127.127.1.0",
		Comment:      "local clock (LCL)",
		FudgeOptions: "stratum 10",
		FudgeComment: "LCL is unsynchronized",
	}, withoutHandles(recs[0]))
	assert.True(t, recs[0].Handle().Bound())
	var servers []string
	for _, r := range recs[1:] {
		assert.Equal(t, TypeServer, r.Type)
		assert.Equal(t, "iburst", r.Options)
		servers = append(servers, r.Address)
	}
	assert.Equal(t, []string{
		"0.opensuse.pool.ntp.org", "1.opensuse.pool.ntp.org",
		"2.opensuse.pool.ntp.org", "3.opensuse.pool.ntp.org",
	}, servers)

	assert.Equal(t, map[string]RestrictEntry{
		"-4 default": {Address: "default", Options: "ipv4 notrap nomodify nopeer noquery"},
		"127.0.0.1":  {Address: "127.0.0.1"},
	}, s.RestrictMap())

	assert.Equal(t, Settings{RunChrooted: true, NetconfigPolicy: DefaultNetconfigPolicy}, s.Settings())
}

func withoutHandles(r SyncRecord) SyncRecord {
	r.handle = RecordHandle{}
	r.fudgeHandle = RecordHandle{}
	return r
}

func TestSessionWriteUnchangedIsIdentical(t *testing.T) {
	s, fs := newTestSession(t, sessionSample)
	require.True(t, s.Write(context.Background()))
	assert.Equal(t, sessionSample, fs.Content(conffile.DefaultNtpConfPath))
	assert.Equal(t, []string{conffile.DefaultNtpConfPath}, fs.Paths())
}

func TestSessionProcessOnlyOnce(t *testing.T) {
	s, fs := newTestSession(t, sessionSample)
	require.True(t, s.DeleteSyncRecord(1))

	require.NoError(t, fs.WriteFile(context.Background(), conffile.DefaultNtpConfPath, []byte("server other.org\n"), 0644))
	require.NoError(t, s.ProcessNtpConf(context.Background()))
	assert.Len(t, s.GetSyncRecords(), 4)
}

func TestSessionReadMissingFile(t *testing.T) {
	s := NewSession(target.NewMemory(nil))
	err := s.Read(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsParse(err))
	assert.False(t, s.ConfigRead())
	assert.Equal(t, err, s.LastError())
}

func TestSessionRestrictIPVersion(t *testing.T) {
	s, fs := newTestSession(t, "restrict -4 default notrap\n")

	e, ok := s.RestrictMap()["-4 default"]
	require.True(t, ok)
	assert.Equal(t, "default", e.Address)
	assert.Equal(t, "ipv4 notrap", e.Options)

	require.True(t, s.Write(context.Background()))
	assert.Equal(t, "restrict -4 default notrap\n", fs.Content(conffile.DefaultNtpConfPath))
}

func TestSessionRestrictLegacyEncoding(t *testing.T) {
	fs := target.NewMemory(nil)
	conf := conffile.NewNtpConf(fs, "")
	require.NoError(t, conf.LoadString("server a.org\n"))

	opts := tree.New()
	opts.Add(tree.CollectionKey(lens.ActionKey), tree.Scalar("default"), nil)
	opts.Add(tree.CollectionKey(lens.ActionKey), tree.Scalar("notrap"), nil)
	e := conf.Tree().Add("restrict[]", &tree.TreeValue{Tree: opts, Value: "-6"}, nil)
	conf.Records().Invalidate()

	s := NewSession(fs)
	s.conf = conf
	s.configRead = true
	s.process()

	assert.Equal(t, map[string]RestrictEntry{
		"-6 default": {Address: "default", Options: "ipv6 notrap"},
	}, s.RestrictMap())
	assert.Equal(t, "default", tree.ValueString(e.Value))

	require.True(t, s.Write(context.Background()))
	assert.Equal(t, "server a.org\nrestrict -6 default notrap\n", fs.Content(conffile.DefaultNtpConfPath))
}

func TestSessionRestrictEdits(t *testing.T) {
	s, fs := newTestSession(t, sessionSample)

	require.NoError(t, s.SetRestrict(RestrictEntry{Address: "192.168.1.0", Mask: "255.255.255.0", Options: "nomodify notrap"}))
	assert.True(t, s.DeleteRestrict("127.0.0.1"))
	assert.False(t, s.DeleteRestrict("127.0.0.1"))
	assert.True(t, errors.IsNotFound(s.LastError()))

	err := s.SetRestrict(RestrictEntry{Address: "bad address!"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	require.True(t, s.Write(context.Background()))
	want := strings.Replace(sessionSample,
		"restrict 127.0.0.1\n",
		"restrict 192.168.1.0 mask 255.255.255.0 nomodify notrap\n", 1)
	assert.Equal(t, want, fs.Content(conffile.DefaultNtpConfPath))
}

func TestSessionDuplicateRestrictDropped(t *testing.T) {
	s, fs := newTestSession(t, "restrict default nopeer\nrestrict default notrap\n")
	assert.Equal(t, map[string]RestrictEntry{"default": {Address: "default", Options: "nopeer"}}, s.RestrictMap())

	require.True(t, s.Write(context.Background()))
	assert.Equal(t, "restrict default nopeer\n", fs.Content(conffile.DefaultNtpConfPath))
}

func TestSessionLocalClockWrittenAsServer(t *testing.T) {
	s, fs := newTestSession(t, sessionSample)

	require.True(t, s.SelectSyncRecord(-1))
	require.NoError(t, s.SetSelected(SyncRecord{
		Type:         TypeClock,
		Address:      ClockAddress(28, 0),
		FudgeOptions: "refid GPS time1 0.1",
	}))
	require.True(t, s.StoreSyncRecord())
	assert.Equal(t, 5, s.SelectedIndex())

	require.True(t, s.Write(context.Background()))
	assert.Equal(t, sessionSample+"server 127.127.28.0\nfudge 127.127.28.0 refid GPS time1 0.1\n",
		fs.Content(conffile.DefaultNtpConfPath))

	// the fudge line goes away with its options
	require.True(t, s.SelectSyncRecord(5))
	require.NoError(t, s.UpdateSelectedField("FudgeOptions", ""))
	require.True(t, s.StoreSyncRecord())
	require.True(t, s.Write(context.Background()))
	assert.Equal(t, sessionSample+"server 127.127.28.0\n", fs.Content(conffile.DefaultNtpConfPath))
}

func TestSessionDeleteKeepsOtherLines(t *testing.T) {
	s, fs := newTestSession(t, sessionSample)

	require.True(t, s.DeleteSyncRecord(2))
	assert.True(t, s.Modified())
	require.True(t, s.Write(context.Background()))

	want := strings.Replace(sessionSample, "server 1.opensuse.pool.ntp.org iburst\n", "", 1)
	assert.Equal(t, want, fs.Content(conffile.DefaultNtpConfPath))
	assert.Len(t, s.GetSyncRecords(), 4)
}

func TestSessionDeleteClockTakesFudge(t *testing.T) {
	s, fs := newTestSession(t, sessionSample)

	require.True(t, s.DeleteSyncRecord(0))
	require.True(t, s.Write(context.Background()))

	want := strings.Replace(sessionSample,
		"server 127.127.1.0              # local clock (LCL)\nfudge  127.127.1.0 stratum 10   # LCL is unsynchronized\n", "", 1)
	assert.Equal(t, want, fs.Content(conffile.DefaultNtpConfPath))
}

func TestSessionSelect(t *testing.T) {
	s, _ := newTestSession(t, sessionSample)

	assert.True(t, s.SelectSyncRecord(1))
	assert.Equal(t, 1, s.SelectedIndex())
	assert.Equal(t, "0.opensuse.pool.ntp.org", s.SelectedRecord().Address)

	assert.False(t, s.SelectSyncRecord(5))
	assert.Equal(t, -1, s.SelectedIndex())
	assert.Equal(t, SyncRecord{}, s.SelectedRecord())
	assert.True(t, errors.IsIndex(s.LastError()))

	assert.False(t, s.SelectSyncRecord(-2))
	assert.Equal(t, -1, s.SelectedIndex())

	assert.True(t, s.SelectSyncRecord(-1))
	assert.Equal(t, SyncRecord{}, s.SelectedRecord())

	// an empty selection is not a valid record
	assert.False(t, s.StoreSyncRecord())
	assert.Len(t, s.GetSyncRecords(), 5)
}

func TestSessionDeleteAdjustsSelection(t *testing.T) {
	s, _ := newTestSession(t, sessionSample)

	require.True(t, s.SelectSyncRecord(3))
	require.True(t, s.DeleteSyncRecord(1))
	assert.Equal(t, 2, s.SelectedIndex())
	assert.Equal(t, "2.opensuse.pool.ntp.org", s.SelectedRecord().Address)

	require.True(t, s.DeleteSyncRecord(2))
	assert.Equal(t, -1, s.SelectedIndex())

	assert.False(t, s.DeleteSyncRecord(-1))
	assert.False(t, s.DeleteSyncRecord(10))
	assert.True(t, errors.IsIndex(s.LastError()))
	assert.Len(t, s.GetSyncRecords(), 3)
}

func TestSessionSetSelectedValidates(t *testing.T) {
	s, _ := newTestSession(t, sessionSample)
	require.True(t, s.SelectSyncRecord(1))

	cases := []SyncRecord{
		{Type: "refclock", Address: "a.org"},
		{Type: TypeServer, Address: "bad host!"},
		{Type: TypeServer},
		{Type: TypeClock, Address: "127.0.0.1"},
	}
	for _, c := range cases {
		err := s.SetSelected(c)
		require.Error(t, err, c)
		assert.True(t, errors.IsValidation(err), c)
	}
	assert.Equal(t, "0.opensuse.pool.ntp.org", s.SelectedRecord().Address)

	require.NoError(t, s.SetSelected(SyncRecord{Type: TypeBroadcastClient}))
	assert.Equal(t, s.GetSyncRecords()[1].Handle(), s.SelectedRecord().Handle())
}

func TestSessionUpdateSelectedField(t *testing.T) {
	s, fs := newTestSession(t, sessionSample)
	require.True(t, s.SelectSyncRecord(1))

	require.NoError(t, s.UpdateSelectedField("Options", "iburst prefer"))
	assert.Equal(t, "iburst prefer", s.SelectedRecord().Options)

	err := s.UpdateSelectedField("Address", "not valid!")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, "0.opensuse.pool.ntp.org", s.SelectedRecord().Address)

	err = s.UpdateSelectedField("Missing", "x")
	require.Error(t, err)
	assert.Equal(t, "Missing", errors.GetContext(err)["field"])

	require.True(t, s.StoreSyncRecord())
	require.True(t, s.Write(context.Background()))
	assert.Contains(t, fs.Content(conffile.DefaultNtpConfPath), "\nserver 0.opensuse.pool.ntp.org iburst prefer\nserver 1.opensuse")
}

func TestSessionChangeTypeKeepsPosition(t *testing.T) {
	s, fs := newTestSession(t, "server a.org iburst\nserver b.org\n")
	require.True(t, s.SelectSyncRecord(0))
	require.NoError(t, s.UpdateSelectedField("Type", TypePeer))
	require.True(t, s.StoreSyncRecord())

	require.True(t, s.Write(context.Background()))
	assert.Equal(t, "peer a.org iburst\nserver b.org\n", fs.Content(conffile.DefaultNtpConfPath))

	// the record now follows the new line
	require.True(t, s.DeleteSyncRecord(0))
	require.True(t, s.Write(context.Background()))
	assert.Equal(t, "server b.org\n", fs.Content(conffile.DefaultNtpConfPath))
}

func TestSessionWriteBeforeRead(t *testing.T) {
	s := NewSession(target.NewMemory(nil))
	assert.False(t, s.Write(context.Background()))
	assert.True(t, errors.IsConfiguration(s.LastError()))
}

func TestSessionWriteFailure(t *testing.T) {
	s, fs := newTestSession(t, sessionSample)
	require.True(t, s.DeleteSyncRecord(1))
	fs.FailWrites = assert.AnError

	assert.False(t, s.Write(context.Background()))
	assert.True(t, errors.IsWrite(s.LastError()))
	assert.True(t, s.Modified())
	assert.Equal(t, sessionSample, fs.Content(conffile.DefaultNtpConfPath))
}

func TestSessionServiceRestart(t *testing.T) {
	svc := &fakeService{}
	s, _ := newTestSession(t, sessionSample, WithServiceController(svc))
	require.True(t, s.DeleteSyncRecord(1))

	require.True(t, s.Write(context.Background()))
	assert.Equal(t, 1, svc.calls)
	assert.False(t, s.Modified())

	svc.err = assert.AnError
	assert.False(t, s.Write(context.Background()))
	assert.ErrorIs(t, s.LastError(), assert.AnError)
}

func TestSessionWriteOnly(t *testing.T) {
	svc := &fakeService{}
	s, fs := newTestSession(t, sessionSample, WithServiceController(svc), WithWriteOnly(true))
	require.True(t, s.DeleteSyncRecord(0))

	require.True(t, s.Write(context.Background()))
	assert.Equal(t, 0, svc.calls)
	assert.True(t, s.Modified())
	assert.NotContains(t, fs.Content(conffile.DefaultNtpConfPath), "127.127.1.0")
}

func TestSessionWithPaths(t *testing.T) {
	fs := target.NewMemory(map[string]string{"/srv/ntp.conf": "server a.org\n"})
	s := NewSession(fs, WithPaths(Paths{NtpConf: "/srv/ntp.conf"}))
	require.NoError(t, s.Read(context.Background()))
	assert.Len(t, s.GetSyncRecords(), 1)
	assert.Equal(t, "/srv/ntp.conf", s.Conf().Path())
	assert.Equal(t, DefaultPaths().CronFile, s.paths.CronFile)
}
