package conffile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionAddIsDetached(t *testing.T) {
	conf := loadNtp(t, "server a.org\ndriftfile /var/lib/ntp/drift\n")
	c := conf.Records()

	template := conf.NewRecord(KindServer, "b.org")
	live := c.Add(template, nil)

	assert.Nil(t, c.Find(template))
	assert.NotNil(t, c.Find(live))
	assert.True(t, c.Last().Equal(template))

	// editing the template does not touch the file
	template.SetValue("c.org")
	assert.Equal(t, "server a.org\ndriftfile /var/lib/ntp/drift\nserver b.org\n", conf.String())

	live.SetRawOptions("iburst")
	assert.Equal(t, "server a.org\ndriftfile /var/lib/ntp/drift\nserver b.org iburst\n", conf.String())
}

func TestCollectionDelete(t *testing.T) {
	conf := loadNtp(t, "server a.org\nserver b.org iburst\npeer b.org\n")
	c := conf.Records()

	// detached records match on kind and value
	assert.True(t, c.Delete(NewRecord(KindServer, "b.org")))
	assert.Equal(t, "server a.org\npeer b.org\n", conf.String())

	assert.False(t, c.Delete(NewRecord(KindServer, "missing.org")))
	assert.Equal(t, 2, c.Len())

	live := c.OfKind(KindPeer)[0]
	assert.True(t, c.Delete(live))
	assert.Equal(t, "server a.org\n", conf.String())
}

func TestCollectionDeleteIf(t *testing.T) {
	conf := loadNtp(t, "server a.org\nserver b.org\nkeys /etc/ntp.keys\nserver c.org\n")
	c := conf.Records()

	n := c.DeleteIf(func(r *Record) bool { return r.Kind() == KindServer })
	assert.Equal(t, 3, n)
	assert.Equal(t, "keys /etc/ntp.keys\n", conf.String())
	assert.False(t, c.Empty())

	c.DeleteIf(func(*Record) bool { return true })
	assert.True(t, c.Empty())
	assert.Nil(t, c.Last())
}

func TestCollectionEqual(t *testing.T) {
	a := loadNtp(t, "server a.org iburst\npeer b.org\n")
	b := loadNtp(t, "# other comments\nserver a.org\npeer b.org\n")
	assert.True(t, a.Records().Equal(b.Records()))

	b.Records().Add(NewRecord(KindPeer, "c.org"), nil)
	assert.False(t, a.Records().Equal(b.Records()))
}

func TestCollectionOrder(t *testing.T) {
	conf := loadNtp(t, "server a.org\n# note\nfudge 127.127.1.0 stratum 10\nserver 127.127.1.0\n")
	recs := conf.Records().All()
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"a.org", "127.127.1.0", "127.127.1.0"}, []string{recs[0].Value(), recs[1].Value(), recs[2].Value()})
	assert.Equal(t, KindFudge, recs[1].Kind())
}

func TestCollectionAddUsesFileGrammar(t *testing.T) {
	conf := loadChrony(t, "rtcsync\n")
	live := conf.Records().Add(NewRecord(KindPool, "a.org"), nil)
	require.NotNil(t, live)

	live.SetRawOptions("iburst maxsources 4")
	assert.Equal(t, Options{Flag("iburst"), Pair("maxsources", "4")}, live.Options())
	assert.Equal(t, "rtcsync\npool a.org iburst maxsources 4\n", conf.String())
	assert.Equal(t, live.ID(), conf.Records().Last().ID())
}

func TestCollectionAddRefusesForeignKinds(t *testing.T) {
	conf := loadNtp(t, "server a.org\n")
	c := conf.Records()

	assert.Nil(t, c.Add(NewRecord(KindRefclock, "PPS"), nil))
	assert.Nil(t, c.Add(NewRecord(KindUnknown, "x"), nil))
	assert.Equal(t, "server a.org\n", conf.String())
	assert.Equal(t, 1, c.Len())
}
