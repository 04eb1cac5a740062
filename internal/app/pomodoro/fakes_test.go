package pomodoro

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jose-valero/pomodoro-bot/internal/infra/storage"
)

// Dobles en memoria de Gateway y repos, compartidos por los tests del
// paquete. Registran cada llamada para poder afirmar sobre side effects.

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeGateway struct {
	mu sync.Mutex

	channels map[string]string   // canal -> nombre actual
	members  map[string][]string // canal -> miembros en voz
	perms    Perms

	renames      []string
	disconnected []string
	plain        []string
	hookSent     []StatusMessage
	hookTexts    []string
	hookEdits    map[string]StatusMessage
	hookDeleted  []string

	sendErrs  []error // HookSend los consume de a uno
	editErr   error
	nextMsgID int
	webhooks  int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		channels:  map[string]string{},
		members:   map[string][]string{},
		hookEdits: map[string]StatusMessage{},
		perms: Perms{
			ManageChannels: true,
			MoveMembers:    true,
			Connect:        true,
			Speak:          true,
			SendMessages:   true,
			ManageWebhooks: true,
		},
	}
}

func (g *fakeGateway) ChannelExists(channelID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.channels[channelID]
	return ok
}

func (g *fakeGateway) ChannelName(channelID string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	name, ok := g.channels[channelID]
	return name, ok
}

func (g *fakeGateway) VoiceMembers(guildID, channelID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.members[channelID]...)
}

func (g *fakeGateway) BotPermissions(guildID, channelID string) Perms {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.perms
}

func (g *fakeGateway) RenameChannel(ctx context.Context, channelID, name, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[channelID] = name
	g.renames = append(g.renames, name)
	return nil
}

func (g *fakeGateway) DisconnectMember(ctx context.Context, guildID, userID, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disconnected = append(g.disconnected, userID)
	for cid, ms := range g.members {
		out := ms[:0]
		for _, m := range ms {
			if m != userID {
				out = append(out, m)
			}
		}
		g.members[cid] = out
	}
	return nil
}

func (g *fakeGateway) CreateWebhook(ctx context.Context, channelID, name string) (string, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.webhooks++
	return fmt.Sprintf("wh-%d", g.webhooks), "token", nil
}

func (g *fakeGateway) SendChannelMessage(ctx context.Context, channelID, content string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.plain = append(g.plain, content)
	return nil
}

func (g *fakeGateway) HookSend(ctx context.Context, h storage.NotifyHook, msg StatusMessage) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.sendErrs) > 0 {
		err := g.sendErrs[0]
		g.sendErrs = g.sendErrs[1:]
		if err != nil {
			return "", err
		}
	}
	g.nextMsgID++
	g.hookSent = append(g.hookSent, msg)
	return fmt.Sprintf("msg-%d", g.nextMsgID), nil
}

func (g *fakeGateway) HookSendText(ctx context.Context, h storage.NotifyHook, content string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hookTexts = append(g.hookTexts, content)
	return nil
}

func (g *fakeGateway) HookEdit(ctx context.Context, h storage.NotifyHook, messageID string, msg StatusMessage) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.editErr != nil {
		return g.editErr
	}
	g.hookEdits[messageID] = msg
	return nil
}

func (g *fakeGateway) HookDelete(ctx context.Context, h storage.NotifyHook, messageID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hookDeleted = append(g.hookDeleted, messageID)
	return nil
}

type startedCall struct {
	at          *time.Time
	autoRestart bool
}

type fakeTimerStore struct {
	mu       sync.Mutex
	rows     map[string]storage.TimerRow
	started  []startedCall
	lastMsgs []*string
	deleted  []string
}

func newFakeTimerStore() *fakeTimerStore {
	return &fakeTimerStore{rows: map[string]storage.TimerRow{}}
}

func (s *fakeTimerStore) Get(ctx context.Context, channelID string) (storage.TimerRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[channelID]
	if !ok {
		return storage.TimerRow{}, storage.ErrNotFound
	}
	return row, nil
}

func (s *fakeTimerStore) ListByGuilds(ctx context.Context, guildIDs []string) ([]storage.TimerRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.TimerRow
	for _, row := range s.rows {
		for _, gid := range guildIDs {
			if row.GuildID == gid {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

func (s *fakeTimerStore) Create(ctx context.Context, t storage.TimerRow) (storage.TimerRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[t.ChannelID] = t
	return t, nil
}

func (s *fakeTimerStore) SetStarted(ctx context.Context, channelID string, startedAt *time.Time, autoRestart bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[channelID]; ok {
		row.LastStarted = startedAt
		row.AutoRestart = autoRestart
		s.rows[channelID] = row
	}
	s.started = append(s.started, startedCall{at: startedAt, autoRestart: autoRestart})
	return nil
}

func (s *fakeTimerStore) SetLastMessage(ctx context.Context, channelID string, messageID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[channelID]; ok {
		row.LastMessageID = messageID
		s.rows[channelID] = row
	}
	s.lastMsgs = append(s.lastMsgs, messageID)
	return nil
}

func (s *fakeTimerStore) UpdateConfig(ctx context.Context, channelID string, p storage.TimerPatch) (storage.TimerRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[channelID]
	if !ok {
		return storage.TimerRow{}, storage.ErrNotFound
	}
	if p.FocusLength != nil {
		row.FocusLength = *p.FocusLength
	}
	if p.BreakLength != nil {
		row.BreakLength = *p.BreakLength
	}
	if p.NotificationChannelID != nil {
		row.NotificationChannelID = p.NotificationChannelID
	}
	if p.ManagerRoleID != nil {
		row.ManagerRoleID = p.ManagerRoleID
	}
	if p.InactivityThreshold != nil {
		row.InactivityThreshold = p.InactivityThreshold
	}
	if p.VoiceAlerts != nil {
		row.VoiceAlerts = p.VoiceAlerts
	}
	if p.ChannelName != nil {
		row.ChannelName = p.ChannelName
	}
	if p.PrettyName != nil {
		row.PrettyName = p.PrettyName
	}
	s.rows[channelID] = row
	return row, nil
}

func (s *fakeTimerStore) Delete(ctx context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, channelID)
	s.deleted = append(s.deleted, channelID)
	return nil
}

func (s *fakeTimerStore) DeleteMany(ctx context.Context, channelIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range channelIDs {
		if _, ok := s.rows[id]; ok {
			delete(s.rows, id)
			n++
		}
		s.deleted = append(s.deleted, id)
	}
	return n, nil
}

type fakeHookStore struct {
	mu      sync.Mutex
	hooks   map[string]storage.NotifyHook
	deleted []string
	upserts int
}

func newFakeHookStore() *fakeHookStore {
	return &fakeHookStore{hooks: map[string]storage.NotifyHook{}}
}

func (s *fakeHookStore) Get(ctx context.Context, channelID string) (storage.NotifyHook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hooks[channelID]
	if !ok {
		return storage.NotifyHook{}, storage.ErrNotFound
	}
	return h, nil
}

func (s *fakeHookStore) Upsert(ctx context.Context, h storage.NotifyHook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[h.ChannelID] = h
	s.upserts++
	return nil
}

func (s *fakeHookStore) Delete(ctx context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hooks, channelID)
	s.deleted = append(s.deleted, channelID)
	return nil
}

type fakeGuildStore struct {
	mu       sync.Mutex
	settings map[string]storage.GuildSettings
}

func newFakeGuildStore() *fakeGuildStore {
	return &fakeGuildStore{settings: map[string]storage.GuildSettings{}}
}

func (s *fakeGuildStore) Get(ctx context.Context, guildID string) (storage.GuildSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings[guildID], nil
}

// fixture cablea un juego completo de dobles con reloj congelado.
type fixture struct {
	gw     *fakeGateway
	store  *fakeTimerStore
	hooks  *fakeHookStore
	guilds *fakeGuildStore
	clock  *fakeClock
	deps   Deps
}

func newFixture() *fixture {
	f := &fixture{
		gw:     newFakeGateway(),
		store:  newFakeTimerStore(),
		hooks:  newFakeHookStore(),
		guilds: newFakeGuildStore(),
		clock:  newFakeClock(time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)),
	}
	f.deps = Deps{
		Gateway: f.gw,
		Timers:  f.store,
		Hooks:   f.hooks,
		Guilds:  f.guilds,
		Now:     f.clock.Now,
	}
	return f
}

// baseRow: timer 25/5 en chan1 del guild1.
func baseRow() storage.TimerRow {
	return storage.TimerRow{
		ChannelID:   "chan1",
		GuildID:     "guild1",
		FocusLength: 1500,
		BreakLength: 300,
	}
}

// timer registra el canal en el gateway, persiste la fila y arma el Timer.
func (f *fixture) timer(row storage.TimerRow) *Timer {
	f.gw.channels[row.ChannelID] = "study-room"
	f.store.rows[row.ChannelID] = row
	f.hooks.hooks[row.ChannelID] = storage.NotifyHook{ChannelID: row.ChannelID, WebhookID: "wh-0", Token: "token"}
	return NewTimer(f.deps, NewAlertPlayer(nil), &sync.Mutex{}, row)
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *bool    { return &b }
