// Package ntpclient manages the time sources of ntp.conf as a flat list of
// records the way a configuration front-end presents them: select one,
// edit it, store it back, delete it, and finally write everything in one go.
package ntpclient

import (
	"context"
	"sort"
	"strings"

	"github.com/morrisxyang/xreflect"

	"github.com/davidroman0O/ntpconf/conffile"
	"github.com/davidroman0O/ntpconf/errors"
	"github.com/davidroman0O/ntpconf/logging"
	"github.com/davidroman0O/ntpconf/sysconfig"
	"github.com/davidroman0O/ntpconf/target"
	"github.com/davidroman0O/ntpconf/tree"
)

// ServiceController restarts the time service after a successful write
type ServiceController interface {
	Restart(ctx context.Context) error
}

// Paths lists the files a session reads and writes
type Paths struct {
	NtpConf          string
	SysconfigNtp     string
	SysconfigNetwork string
	CronFile         string
}

// DefaultPaths returns the standard locations
func DefaultPaths() Paths {
	return Paths{
		NtpConf:          conffile.DefaultNtpConfPath,
		SysconfigNtp:     "/etc/sysconfig/ntp",
		SysconfigNetwork: "/etc/sysconfig/network/config",
		CronFile:         "/etc/cron.d/suse-ntp_synchronize",
	}
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(l logging.Logger) Option {
	return func(s *Session) {
		s.log = logging.OrNop(l)
	}
}

// WithServiceController sets the hook run after Write
func WithServiceController(c ServiceController) Option {
	return func(s *Session) {
		s.service = c
	}
}

// WithWriteOnly makes Write only save files. The service is not restarted
// and the modified flag is kept.
func WithWriteOnly(writeOnly bool) Option {
	return func(s *Session) {
		s.writeOnly = writeOnly
	}
}

// WithPaths overrides the file locations; empty fields keep the defaults
func WithPaths(p Paths) Option {
	return func(s *Session) {
		if p.NtpConf != "" {
			s.paths.NtpConf = p.NtpConf
		}
		if p.SysconfigNtp != "" {
			s.paths.SysconfigNtp = p.SysconfigNtp
		}
		if p.SysconfigNetwork != "" {
			s.paths.SysconfigNetwork = p.SysconfigNetwork
		}
		if p.CronFile != "" {
			s.paths.CronFile = p.CronFile
		}
	}
}

// Session holds the state of one configuration run: load, edit, write.
// It is not safe for concurrent use.
type Session struct {
	fs        target.FS
	paths     Paths
	log       logging.Logger
	service   ServiceController
	writeOnly bool

	conf       *conffile.NtpConf
	configRead bool
	modified   bool
	lastErr    error

	records       []SyncRecord
	restrictMap   map[string]RestrictEntry
	deleted       []RecordHandle
	selected      SyncRecord
	selectedIndex int

	settings     Settings
	settingsRead bool
	loaded       Settings
	sysNtp       *sysconfig.File
	sysNetwork   *sysconfig.File
	cronPresent  bool
}

// NewSession creates a session working on the files of fs
func NewSession(fs target.FS, opts ...Option) *Session {
	s := &Session{
		fs:            fs,
		paths:         DefaultPaths(),
		log:           logging.NopLogger{},
		restrictMap:   make(map[string]RestrictEntry),
		selectedIndex: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read loads ntp.conf and the sysconfig settings
func (s *Session) Read(ctx context.Context) error {
	if err := s.ProcessNtpConf(ctx); err != nil {
		return err
	}
	return s.readSettings(ctx)
}

// ProcessNtpConf loads ntp.conf into the record list. It only runs once per
// session; later calls return nil without touching the state.
func (s *Session) ProcessNtpConf(ctx context.Context) error {
	if s.configRead {
		return nil
	}
	conf := conffile.NewNtpConf(s.fs, s.paths.NtpConf)
	if err := conf.Load(ctx); err != nil {
		s.lastErr = err
		s.log.Error("Failed to read %s from %s: %v", s.paths.NtpConf, s.fs.Location(), err)
		return err
	}
	s.conf = conf
	s.process()
	s.configRead = true
	s.log.Info("Read %d sync records and %d restrict rules from %s", len(s.records), len(s.restrictMap), s.paths.NtpConf)
	return nil
}

// process splits the loaded records into sync records, fudge companions and
// restrict rules.
func (s *Session) process() {
	s.records = nil
	s.deleted = nil
	s.restrictMap = make(map[string]RestrictEntry)

	fudges := make(map[string]*conffile.Record)
	var sources []*conffile.Record
	for _, r := range s.conf.Records().All() {
		switch r.Kind() {
		case conffile.KindFudge:
			if _, dup := fudges[r.Value()]; !dup {
				fudges[r.Value()] = r
			}
		case conffile.KindRestrict:
			r.Normalize()
			e := restrictFromRecord(r)
			if _, dup := s.restrictMap[e.Key()]; dup {
				s.log.Warn("Duplicate restrict rule for %s will be dropped on write", e.Key())
				continue
			}
			s.restrictMap[e.Key()] = e
		case conffile.KindServer, conffile.KindPeer, conffile.KindPool,
			conffile.KindBroadcast, conffile.KindBroadcastClient:
			sources = append(sources, r)
		}
	}

	for _, r := range sources {
		rec := SyncRecord{
			Type:    r.Kind().String(),
			Address: r.Value(),
			Options: r.RawOptions(),
			Comment: r.Comment(),
			handle:  handleOf(r),
		}
		if r.Kind() == conffile.KindServer && IsLocalClock(rec.Address) {
			rec.Type = TypeClock
			if f, ok := fudges[rec.Address]; ok {
				rec.FudgeOptions = f.RawOptions()
				rec.FudgeComment = f.Comment()
				rec.fudgeHandle = handleOf(f)
			}
		}
		s.records = append(s.records, rec)
	}
}

// ConfigRead reports whether ntp.conf was processed
func (s *Session) ConfigRead() bool {
	return s.configRead
}

// Modified reports whether anything changed since the last write
func (s *Session) Modified() bool {
	return s.modified
}

// LastError returns the error behind the last failed operation
func (s *Session) LastError() error {
	return s.lastErr
}

// Conf exposes the loaded file model, nil before ProcessNtpConf
func (s *Session) Conf() *conffile.NtpConf {
	return s.conf
}

// GetSyncRecords returns a copy of the record list
func (s *Session) GetSyncRecords() []SyncRecord {
	return append([]SyncRecord(nil), s.records...)
}

func (s *Session) indexError(op string, index int) {
	s.lastErr = errors.WithContext(
		errors.WithOp(errors.Newf(errors.ErrIndex, "index %d out of range", index), op),
		map[string]interface{}{"index": index, "records": len(s.records)},
	)
	s.log.Warn("%v", s.lastErr)
}

// SelectSyncRecord makes record index the selection. -1 selects a new empty
// record. Any other index outside the list selects -1 and returns false.
func (s *Session) SelectSyncRecord(index int) bool {
	if index < -1 || index >= len(s.records) {
		s.indexError("select sync record", index)
		s.selectedIndex = -1
		s.selected = SyncRecord{}
		return false
	}
	s.selectedIndex = index
	if index == -1 {
		s.selected = SyncRecord{}
	} else {
		s.selected = s.records[index]
	}
	return true
}

// SelectedIndex returns the index of the selection, -1 for a new record
func (s *Session) SelectedIndex() int {
	return s.selectedIndex
}

// SelectedRecord returns a copy of the selection
func (s *Session) SelectedRecord() SyncRecord {
	return s.selected
}

// SetSelected replaces the selection after validating r. The selection
// stays bound to the line it was read from.
func (s *Session) SetSelected(r SyncRecord) error {
	if err := r.Validate(); err != nil {
		s.lastErr = err
		return err
	}
	r.handle = s.selected.handle
	r.fudgeHandle = s.selected.fudgeHandle
	s.selected = r
	return nil
}

// UpdateSelectedField sets one field of the selection by name, e.g.
// "Address" or "FudgeOptions". The result is validated before it is kept.
func (s *Session) UpdateSelectedField(field string, value interface{}) error {
	candidate := s.selected
	if err := xreflect.SetEmbedField(&candidate, field, value); err != nil {
		err = errors.WithContext(
			errors.Wrap(err, errors.ErrValidation, "failed to update field"),
			map[string]interface{}{"field": field},
		)
		s.lastErr = err
		return err
	}
	if err := candidate.Validate(); err != nil {
		s.lastErr = err
		return err
	}
	s.selected = candidate
	return nil
}

// StoreSyncRecord puts the selection into the list: appended when it is new,
// replacing its original otherwise.
func (s *Session) StoreSyncRecord() bool {
	if err := s.selected.Validate(); err != nil {
		s.lastErr = err
		s.log.Warn("Refusing to store sync record: %v", err)
		return false
	}
	switch {
	case s.selectedIndex == -1:
		s.records = append(s.records, s.selected)
		s.selectedIndex = len(s.records) - 1
	case s.selectedIndex < len(s.records):
		s.records[s.selectedIndex] = s.selected
	default:
		s.indexError("store sync record", s.selectedIndex)
		return false
	}
	s.modified = true
	return true
}

// DeleteSyncRecord removes record index. Its lines, and the fudge line of a
// local clock, are removed from the file on Write.
func (s *Session) DeleteSyncRecord(index int) bool {
	if index < 0 || index >= len(s.records) {
		s.indexError("delete sync record", index)
		return false
	}
	s.addToDeleted(s.records[index])
	s.records = append(s.records[:index:index], s.records[index+1:]...)

	switch {
	case s.selectedIndex == index:
		s.selectedIndex = -1
		s.selected = SyncRecord{}
	case s.selectedIndex > index:
		s.selectedIndex--
	}
	s.modified = true
	return true
}

// addToDeleted records the lines backing r. A local clock brings its fudge
// line along.
func (s *Session) addToDeleted(r SyncRecord) {
	for _, h := range []RecordHandle{r.handle, r.fudgeHandle} {
		if h.Bound() {
			s.deleted = append(s.deleted, h)
		}
	}
}

// RestrictMap returns a copy of the restrict rules keyed by RestrictEntry.Key
func (s *Session) RestrictMap() map[string]RestrictEntry {
	out := make(map[string]RestrictEntry, len(s.restrictMap))
	for k, v := range s.restrictMap {
		out[k] = v
	}
	return out
}

// SetRestrict adds or replaces a restrict rule
func (s *Session) SetRestrict(e RestrictEntry) error {
	if err := e.Validate(); err != nil {
		s.lastErr = err
		return err
	}
	s.restrictMap[e.Key()] = e
	s.modified = true
	return nil
}

// DeleteRestrict removes the rule with the key
func (s *Session) DeleteRestrict(key string) bool {
	if _, ok := s.restrictMap[key]; !ok {
		s.lastErr = errors.WithContext(errors.New(errors.ErrNotFound, "no such restrict rule"), map[string]interface{}{"key": key})
		return false
	}
	delete(s.restrictMap, key)
	s.modified = true
	return true
}

func (s *Session) fail(err error, format string, args ...interface{}) bool {
	s.lastErr = err
	s.log.Error(format+": %v", append(args, err)...)
	return false
}

// Write applies the session to the file model and saves it. Restrict rules
// go first, then the sync records, then the deletions. Errors are logged and
// reported as false.
func (s *Session) Write(ctx context.Context) bool {
	if !s.configRead {
		return s.fail(errors.New(errors.ErrConfiguration, "configuration has not been read"), "Cannot write %s", s.paths.NtpConf)
	}

	s.writeRestricts()
	for i := range s.records {
		s.writeRecord(&s.records[i])
	}
	coll := s.conf.Records()
	for _, h := range s.deleted {
		coll.DeleteID(h.id)
	}
	s.deleted = nil

	if err := s.conf.Save(ctx); err != nil {
		return s.fail(err, "Failed to write %s", s.paths.NtpConf)
	}
	s.log.Info("Wrote %s to %s", s.paths.NtpConf, s.fs.Location())

	if err := s.writeSettings(ctx); err != nil {
		return s.fail(err, "Failed to write settings")
	}

	if s.writeOnly {
		s.log.Debug("Write only mode, service not restarted")
		return true
	}
	if s.service != nil {
		if err := s.service.Restart(ctx); err != nil {
			return s.fail(err, "Failed to restart the time service")
		}
	}
	s.modified = false
	return true
}

func (s *Session) writeRestricts() {
	coll := s.conf.Records()
	seen := make(map[string]bool, len(s.restrictMap))
	for _, rec := range s.conf.RecordsOf(conffile.KindRestrict) {
		key := restrictFromRecord(rec).Key()
		e, ok := s.restrictMap[key]
		if !ok || seen[key] {
			coll.Delete(rec)
			continue
		}
		seen[key] = true
		applyRestrict(rec, e)
	}

	var added []string
	for key := range s.restrictMap {
		if !seen[key] {
			added = append(added, key)
		}
	}
	sort.Strings(added)
	for _, key := range added {
		e := s.restrictMap[key]
		var p tree.Placer
		if existing := coll.OfKind(conffile.KindRestrict); len(existing) > 0 {
			p = tree.AfterPlacer{Matcher: tree.MatchID(existing[len(existing)-1].ID())}
		}
		applyRestrict(coll.Add(s.conf.NewRecord(conffile.KindRestrict, e.Address), p), e)
	}
}

func (s *Session) writeRecord(r *SyncRecord) {
	kind, ok := syncKinds[r.Type]
	if !ok {
		s.log.Warn("Skipping sync record of unknown type %q", r.Type)
		return
	}
	coll := s.conf.Records()

	var rec *conffile.Record
	if r.handle.Bound() {
		rec = coll.FindID(r.handle.id)
	}
	switch {
	case rec == nil:
		rec = coll.Add(s.conf.NewRecord(kind, r.Address), nil)
	case rec.Kind() != kind:
		old := rec
		rec = coll.Add(s.conf.NewRecord(kind, r.Address), tree.AfterPlacer{Matcher: tree.MatchID(old.ID())})
		coll.Delete(old)
	}
	r.handle = handleOf(rec)

	if kind != conffile.KindBroadcastClient && rec.Value() != r.Address {
		rec.SetValue(r.Address)
	}
	if rec.RawOptions() != normalizeFields(r.Options) {
		rec.SetRawOptions(r.Options)
	}
	if rec.Comment() != r.Comment {
		rec.SetComment(r.Comment)
	}
	s.writeFudge(r, rec)
}

func (s *Session) writeFudge(r *SyncRecord, server *conffile.Record) {
	coll := s.conf.Records()
	var fudge *conffile.Record
	if r.fudgeHandle.Bound() {
		fudge = coll.FindID(r.fudgeHandle.id)
	}
	if r.Type != TypeClock || (r.FudgeOptions == "" && r.FudgeComment == "") {
		if fudge != nil {
			coll.Delete(fudge)
		}
		r.fudgeHandle = RecordHandle{}
		return
	}
	if fudge == nil {
		fudge = coll.Add(s.conf.NewRecord(conffile.KindFudge, r.Address), tree.AfterPlacer{Matcher: tree.MatchID(server.ID())})
		r.fudgeHandle = handleOf(fudge)
	}
	if fudge.Value() != r.Address {
		fudge.SetValue(r.Address)
	}
	if fudge.RawOptions() != normalizeFields(r.FudgeOptions) {
		fudge.SetRawOptions(r.FudgeOptions)
	}
	if fudge.Comment() != r.FudgeComment {
		fudge.SetComment(r.FudgeComment)
	}
}

func normalizeFields(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
