package conffile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidroman0O/ntpconf/errors"
	"github.com/davidroman0O/ntpconf/lens"
	"github.com/davidroman0O/ntpconf/target"
	"github.com/davidroman0O/ntpconf/tree"
)

func loadNtp(t *testing.T, text string) *NtpConf {
	t.Helper()
	conf := NewNtpConf(target.NewMemory(nil), "")
	require.NoError(t, conf.LoadString(text))
	return conf
}

func TestNewRecordFromElement(t *testing.T) {
	r, err := NewRecordFromElement(tree.NewElement("server[]", tree.Scalar("a.org")), lens.NTP)
	require.NoError(t, err)
	assert.Equal(t, KindServer, r.Kind())
	assert.Equal(t, "a.org", r.Value())

	_, err = NewRecordFromElement(tree.NewElement("statistics", tree.Scalar("loopstats")), lens.NTP)
	require.Error(t, err)
	assert.True(t, errors.IsUnsupportedEntry(err))
	assert.Equal(t, "statistics", errors.GetContext(err)["key"])

	_, err = NewRecordFromElement(tree.NewElement("server", tree.Scalar("a.org")), nil)
	assert.True(t, errors.IsValidation(err))
}

func TestRecordValueKeepsOptions(t *testing.T) {
	conf := loadNtp(t, "server a.org iburst\n")
	r := conf.Records().All()[0]

	r.SetValue("b.org")
	assert.Equal(t, "b.org", r.Value())
	assert.Equal(t, "server b.org iburst\n", conf.String())
}

func TestRecordRawOptions(t *testing.T) {
	r := NewRecord(KindServer, "a.org")
	r.SetRawOptions("iburst minpoll 4   prefer")

	assert.Equal(t, Options{Flag("iburst"), Pair("minpoll", "4"), Flag("prefer")}, r.Options())
	assert.Equal(t, "iburst minpoll 4 prefer", r.RawOptions())
	assert.Equal(t, "server a.org iburst minpoll 4 prefer", r.String())

	// reparsing the serialized form yields the same options
	again := NewRecord(KindServer, "a.org")
	again.SetRawOptions(r.RawOptions())
	assert.Equal(t, r.Options(), again.Options())
}

func TestRecordFudgeOptions(t *testing.T) {
	r := NewRecord(KindFudge, "127.127.1.0")
	r.SetFudgeOptions(map[string]string{"flag1": "1", "stratum": "10", "refid": "LCL"})

	assert.Equal(t, "fudge 127.127.1.0 stratum 10 refid LCL flag1 1", r.String())
	assert.Equal(t, map[string]string{"flag1": "1", "stratum": "10", "refid": "LCL"}, r.FudgeOptions())
}

func TestRecordRestrict(t *testing.T) {
	conf := loadNtp(t, "restrict -4 default notrap nomodify\nrestrict 192.168.1.0 mask 255.255.255.0 nomodify\n")
	recs := conf.Records().All()
	require.Len(t, recs, 2)

	assert.Equal(t, "default", recs[0].Value())
	assert.Equal(t, Options{Flag(lens.IPv4Key), Flag("notrap"), Flag("nomodify")}, recs[0].Options())

	assert.Equal(t, "192.168.1.0", recs[1].Value())
	assert.Equal(t, "255.255.255.0", recs[1].Mask())
	assert.Equal(t, Options{Flag("nomodify")}, recs[1].Options())

	recs[1].SetMask("")
	assert.Equal(t, "restrict -4 default notrap nomodify\nrestrict 192.168.1.0 nomodify\n", conf.String())

	recs[1].SetMask("255.255.0.0")
	recs[1].SetOptions(Options{Flag(lens.IPv6Key), Flag("nopeer")})
	assert.Equal(t, "restrict -6 192.168.1.0 mask 255.255.0.0 nopeer", recs[1].String())
}

func TestRecordRestrictLegacyEncoding(t *testing.T) {
	opts := tree.New()
	opts.Add(tree.CollectionKey(lens.ActionKey), tree.Scalar("default"), nil)
	opts.Add(tree.CollectionKey(lens.ActionKey), tree.Scalar("notrap"), nil)
	e := tree.NewElement("restrict[]", &tree.TreeValue{Tree: opts, Value: "-4"})

	r, err := NewRecordFromElement(e, lens.NTP)
	require.NoError(t, err)
	assert.Equal(t, "default", r.Value())
	assert.Equal(t, Options{Flag(lens.IPv4Key), Flag("notrap")}, r.Options())

	// any mutation rewrites the element in the current encoding
	r.SetOptions(r.Options())
	assert.Equal(t, "default", tree.ValueString(e.Value))
	assert.Equal(t, "restrict -4 default notrap", r.String())
}

func TestRecordComment(t *testing.T) {
	conf := loadNtp(t, "server a.org iburst\n")
	r := conf.Records().All()[0]

	r.SetComment("main source")
	assert.Equal(t, "main source", r.Comment())
	assert.Equal(t, "server a.org iburst # main source\n", conf.String())

	r.SetComment("first line\n# second line")
	assert.Equal(t, "first line\nsecond line", r.Comment())
	assert.Equal(t, Annotation{Block: []string{"first line", "second line"}}, r.Annotation())
	assert.Equal(t, "# first line\n# second line\nserver a.org iburst\n", conf.String())
	assert.Equal(t, 1, conf.Tree().Len())

	r.SetComment("")
	assert.Equal(t, "", r.Comment())
	assert.Equal(t, "server a.org iburst\n", conf.String())
}

func TestRecordEqual(t *testing.T) {
	a := NewRecord(KindServer, "a.org")
	b := NewRecord(KindServer, "a.org")
	b.SetRawOptions("iburst")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(NewRecord(KindPeer, "a.org")))
	assert.False(t, a.Equal(NewRecord(KindServer, "b.org")))
	assert.False(t, a.Equal(nil))
}

func TestRecordTinker(t *testing.T) {
	conf := loadNtp(t, "tinker panic 0 step 0.5\n")
	r := conf.Records().All()[0]
	assert.Equal(t, KindTinker, r.Kind())
	assert.Equal(t, map[string]string{"panic": "0", "step": "0.5"}, r.Options().Map())

	r.SetValue("ignored")
	assert.Equal(t, "tinker panic 0 step 0.5\n", conf.String())
}

func TestParseKind(t *testing.T) {
	for _, k := range AllKinds() {
		parsed, ok := ParseKind(tree.CollectionKey(k.String()))
		assert.True(t, ok, k.String())
		assert.Equal(t, k, parsed)
	}
	_, ok := ParseKind("rtcsync")
	assert.False(t, ok)
	assert.Equal(t, "unknown", KindUnknown.String())
}
