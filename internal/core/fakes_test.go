package core

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"qanta-backend-go/internal/ai"
	"qanta-backend-go/internal/db"
	"qanta-backend-go/internal/models"
	"qanta-backend-go/internal/notify"
	"qanta-backend-go/internal/quota"
)

// In-memory repositories. Each holds its mutex for the whole callback of an
// update, which gives the same serialization a Firestore transaction does.

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: map[string]*models.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, userID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, fmt.Errorf("user '%s': %w", userID, db.ErrNotFound)
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *user
	f.users[user.ID] = &c
	return nil
}

func (f *fakeUsers) Merge(_ context.Context, userID string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		u = &models.User{ID: userID}
		f.users[userID] = u
	}
	for k, v := range fields {
		switch k {
		case "email":
			u.Email = v.(string)
		case "displayName":
			u.DisplayName = v.(string)
		case "name":
			u.Name = v.(string)
		case "isTestMode":
			u.IsTestMode = v.(bool)
		case "isPremium":
			u.IsPremium = v.(bool)
		case "isPremiumPlus":
			u.IsPremiumPlus = v.(bool)
		case "subscriptionStatus":
			u.SubscriptionStatus = v.(string)
		case "referral_code":
			u.ReferralCode = v.(string)
		case "referred_by":
			u.ReferredBy = v.(string)
		case "referred_by_code":
			u.ReferredByCode = v.(string)
		case "referral_status":
			u.ReferralStatus = v.(string)
		}
	}
	return nil
}

func (f *fakeUsers) FindByReferralCode(_ context.Context, code string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ReferralCode == code {
			c := *u
			return &c, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeUsers) ListAll(context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for _, u := range f.users {
		c := *u
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeUsers) SetReferralCodes(_ context.Context, codes map[string]string) (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	written, failed := 0, 0
	for id, code := range codes {
		u, ok := f.users[id]
		if !ok {
			failed++
			continue
		}
		u.ReferralCode = code
		written++
	}
	return written, failed
}

type fakeUsage struct {
	mu      sync.Mutex
	buckets map[string]*models.UsageBucket
	legacy  map[string]*models.LegacyUsage
}

func newFakeUsage() *fakeUsage {
	return &fakeUsage{buckets: map[string]*models.UsageBucket{}, legacy: map[string]*models.LegacyUsage{}}
}

func bucketID(userID string, period quota.Period, key string) string {
	return userID + "/" + string(period) + "/" + key
}

func copyBucket(b *models.UsageBucket) *models.UsageBucket {
	c := *b
	c.Counts = map[string]int{}
	for k, v := range b.Counts {
		c.Counts[k] = v
	}
	return &c
}

func (f *fakeUsage) GetBucket(_ context.Context, userID string, period quota.Period, key string) (*models.UsageBucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.buckets[bucketID(userID, period, key)]; ok {
		return copyBucket(b), nil
	}
	return &models.UsageBucket{Key: key, Counts: map[string]int{}}, nil
}

func (f *fakeUsage) UpdateBucket(_ context.Context, userID string, period quota.Period, key string, fn func(*models.UsageBucket) error) (*models.UsageBucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := bucketID(userID, period, key)
	b, ok := f.buckets[id]
	if !ok {
		b = &models.UsageBucket{Key: key, Counts: map[string]int{}}
	}
	work := copyBucket(b)
	if err := fn(work); err != nil {
		return nil, fmt.Errorf("usage bucket '%s': %w", id, err)
	}
	f.buckets[id] = work
	return copyBucket(work), nil
}

func (f *fakeUsage) UpdateLegacy(_ context.Context, userID, month string, fn func(*models.LegacyUsage) error) (*models.LegacyUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := userID + "/" + month
	u, ok := f.legacy[id]
	if !ok {
		u = &models.LegacyUsage{Month: month, UserID: userID}
	}
	work := *u
	work.RequestsByType = map[string]int{}
	for k, v := range u.RequestsByType {
		work.RequestsByType[k] = v
	}
	if err := fn(&work); err != nil {
		return nil, fmt.Errorf("legacy usage '%s': %w", id, err)
	}
	f.legacy[id] = &work
	out := work
	return &out, nil
}

func (f *fakeUsage) count(userID string, period quota.Period, key, requestType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.buckets[bucketID(userID, period, key)]; ok {
		return b.Counts[requestType]
	}
	return 0
}

type fakePoints struct {
	mu       sync.Mutex
	balances map[string]*models.PointBalance
	entries  []*models.PointTransaction
}

func newFakePoints() *fakePoints {
	return &fakePoints{balances: map[string]*models.PointBalance{}}
}

func (f *fakePoints) GetBalance(_ context.Context, userID string) (*models.PointBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance(userID), nil
}

func (f *fakePoints) balance(userID string) *models.PointBalance {
	b, ok := f.balances[userID]
	if !ok {
		b = &models.PointBalance{UserID: userID}
		f.balances[userID] = b
	}
	c := *b
	return &c
}

// apply must be called with mu held.
func (f *fakePoints) apply(entry *models.PointTransaction) (*models.PointBalance, error) {
	b := f.balance(entry.UserID)
	if b.TotalPoints+entry.Points < 0 {
		return nil, db.ErrInsufficientPoints
	}
	b.Apply(entry)
	f.balances[entry.UserID] = b
	f.entries = append(f.entries, entry)
	c := *b
	return &c, nil
}

func (f *fakePoints) Apply(_ context.Context, entry *models.PointTransaction) (*models.PointBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := f.apply(entry)
	if err != nil {
		return nil, fmt.Errorf("point ledger for user '%s': %w", entry.UserID, err)
	}
	return b, nil
}

type fakeReferrals struct {
	mu      sync.Mutex
	users   *fakeUsers
	points  *fakePoints
	stats   map[string]*models.ReferralStats
	records map[string][]*models.ReferralRecord
}

func newFakeReferrals(users *fakeUsers, points *fakePoints) *fakeReferrals {
	return &fakeReferrals{
		users:   users,
		points:  points,
		stats:   map[string]*models.ReferralStats{},
		records: map[string][]*models.ReferralRecord{},
	}
}

func (f *fakeReferrals) ProcessReferral(ctx context.Context, referredID, referrerID string, decide func(models.ReferralState) (*models.ReferralPlan, error)) (*models.ReferralOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var state models.ReferralState
	if u, err := f.users.GetByID(ctx, referredID); err == nil {
		state.Referred = u
	}
	stats := f.stats[referrerID]
	if stats == nil {
		stats = &models.ReferralStats{UserID: referrerID}
	}
	state.ReferrerCount = stats.ReferralCount
	for _, r := range f.records[referrerID] {
		if r.ReferredUserID == referredID {
			state.AlreadyRecorded = true
		}
	}

	plan, err := decide(state)
	if err != nil {
		return nil, fmt.Errorf("referral: %w", err)
	}
	if plan == nil {
		return nil, nil
	}
	fields := map[string]interface{}{
		"referred_by":      plan.ReferrerID,
		"referred_by_code": plan.Code,
		"referral_status":  plan.Status,
	}
	if plan.OwnCode != "" {
		fields["referral_code"] = plan.OwnCode
	}
	_ = f.users.Merge(ctx, referredID, fields)

	f.points.mu.Lock()
	defer f.points.mu.Unlock()
	out := &models.ReferralOutcome{
		ReferralCount:   stats.ReferralCount,
		ReferrerBalance: f.points.balance(referrerID).TotalPoints,
		ReferredBalance: f.points.balance(referredID).TotalPoints,
	}
	if plan.Status != models.ReferralStatusSuccess {
		return out, nil
	}
	f.records[referrerID] = append(f.records[referrerID], plan.Record)
	stats.ReferralCount++
	stats.TotalPointsEarned += plan.Points
	f.stats[referrerID] = stats
	out.ReferralCount = stats.ReferralCount
	rb, _ := f.points.apply(plan.ReferrerCredit)
	nb, _ := f.points.apply(plan.ReferredCredit)
	out.ReferrerBalance, out.ReferredBalance = rb.TotalPoints, nb.TotalPoints
	return out, nil
}

type fakeGiftCards struct {
	mu       sync.Mutex
	points   *fakePoints
	stats    map[string]*models.RewardStats
	credits  map[string][]*models.RewardCredit
	cards    map[string]*models.GiftCard
	requests []*models.AdminRequest
}

func newFakeGiftCards(points *fakePoints) *fakeGiftCards {
	return &fakeGiftCards{
		points:  points,
		stats:   map[string]*models.RewardStats{},
		credits: map[string][]*models.RewardCredit{},
		cards:   map[string]*models.GiftCard{},
	}
}

func (f *fakeGiftCards) ConvertRewards(_ context.Context, userID string, plan func(*models.RewardStats, []*models.RewardCredit) (*models.RewardConversion, error)) (*models.RewardConversion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats, ok := f.stats[userID]
	if !ok {
		return nil, fmt.Errorf("reward conversion: %w", db.ErrNotFound)
	}
	var credits []*models.RewardCredit
	for _, c := range f.credits[userID] {
		if c.Status == models.CreditAccumulated {
			cc := *c
			credits = append(credits, &cc)
		}
	}
	slices.SortFunc(credits, func(a, b *models.RewardCredit) int { return a.EarnedAt.Compare(b.EarnedAt) })
	s := *stats
	conv, err := plan(&s, credits)
	if err != nil {
		return nil, fmt.Errorf("reward conversion: %w", err)
	}
	if conv == nil {
		return nil, nil
	}
	f.store(conv.Cards, conv.Requests)
	for _, ch := range conv.Credits {
		for _, c := range f.credits[userID] {
			if c.ID != ch.CreditID {
				continue
			}
			if ch.Partial {
				c.Amount = ch.NewAmount
			} else {
				c.Status = models.CreditConverted
				c.GiftCardID = ch.GiftCardID
			}
		}
	}
	st := conv.Stats
	f.stats[userID] = &st
	return conv, nil
}

func (f *fakeGiftCards) store(cards []*models.GiftCard, requests []*models.AdminRequest) {
	for _, c := range cards {
		cc := *c
		f.cards[c.UserID+"/"+c.ID] = &cc
	}
	f.requests = append(f.requests, requests...)
}

func (f *fakeGiftCards) Issue(_ context.Context, userID string, issue *models.GiftCardIssue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if issue.Debit != nil {
		f.points.mu.Lock()
		_, err := f.points.apply(issue.Debit)
		f.points.mu.Unlock()
		if err != nil {
			return fmt.Errorf("gift card issue for user '%s': %w", userID, err)
		}
	}
	f.store(issue.Cards, issue.Requests)
	return nil
}

func (f *fakeGiftCards) Get(_ context.Context, userID, giftCardID string) (*models.GiftCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[userID+"/"+giftCardID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cc := *c
	return &cc, nil
}

func (f *fakeGiftCards) MarkSent(ctx context.Context, userID, giftCardID string, fn func(*models.GiftCard) error) (*models.GiftCard, error) {
	card, err := f.Update(ctx, userID, giftCardID, fn)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.GiftCardID == giftCardID && r.Status == models.AdminRequestPending {
			r.Status = models.AdminRequestCompleted
		}
	}
	return card, nil
}

func (f *fakeGiftCards) Update(_ context.Context, userID, giftCardID string, fn func(*models.GiftCard) error) (*models.GiftCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[userID+"/"+giftCardID]
	if !ok {
		return nil, fmt.Errorf("gift card '%s': %w", giftCardID, db.ErrNotFound)
	}
	work := *c
	if err := fn(&work); err != nil {
		return nil, fmt.Errorf("gift card '%s': %w", giftCardID, err)
	}
	f.cards[userID+"/"+giftCardID] = &work
	out := work
	return &out, nil
}

type fakeAdmins struct {
	mu     sync.Mutex
	admins []string
	bypass []string
	reads  int
}

func (f *fakeAdmins) ListAdmins(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return slices.Clone(f.admins), nil
}

func (f *fakeAdmins) AddAdmin(_ context.Context, userID string, allow func([]string) error) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := allow(slices.Clone(f.admins)); err != nil {
		return false, fmt.Errorf("add admin: %w", err)
	}
	if slices.Contains(f.admins, userID) {
		return false, nil
	}
	f.admins = append(f.admins, userID)
	return true, nil
}

func (f *fakeAdmins) ListQuotaBypass(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.bypass), nil
}

type fakeAccounts struct {
	mu       sync.Mutex
	accounts []*models.Account
}

func (f *fakeAccounts) Create(_ context.Context, account *models.Account, check func(int) error) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if check != nil {
		cards := 0
		for _, a := range f.accounts {
			if a.UserID == account.UserID && a.IsActive && a.IsCard() {
				cards++
			}
		}
		if err := check(cards); err != nil {
			return "", fmt.Errorf("create account: %w", err)
		}
	}
	account.ID = fmt.Sprintf("acc-%d", len(f.accounts)+1)
	c := *account
	f.accounts = append(f.accounts, &c)
	return account.ID, nil
}

type fakeSupport struct {
	mu       sync.Mutex
	requests map[string]*models.SupportRequest
}

func newFakeSupport() *fakeSupport {
	return &fakeSupport{requests: map[string]*models.SupportRequest{}}
}

func (f *fakeSupport) Create(_ context.Context, req *models.SupportRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.ID = fmt.Sprintf("req-%d", len(f.requests)+1)
	c := *req
	f.requests[req.ID] = &c
	return req.ID, nil
}

func (f *fakeSupport) GetByID(_ context.Context, requestID string) (*models.SupportRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[requestID]
	if !ok {
		return nil, db.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakeSupport) Update(_ context.Context, requestID string, fn func(*models.SupportRequest) error) (*models.SupportRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[requestID]
	if !ok {
		return nil, fmt.Errorf("support request '%s': %w", requestID, db.ErrNotFound)
	}
	work := *r
	work.Messages = slices.Clone(r.Messages)
	if err := fn(&work); err != nil {
		return nil, fmt.Errorf("update support request: %w", err)
	}
	f.requests[requestID] = &work
	out := work
	return &out, nil
}

type fakeTransactions struct {
	mu       sync.Mutex
	matches  int
	queries  []db.TransactionQuery
	onDelete func()
}

func (f *fakeTransactions) DeleteMatching(_ context.Context, _ string, q db.TransactionQuery) (int, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	hook := f.onDelete
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return f.matches, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (f *fakeAudit) CreateAuditLog(_ context.Context, entry models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type fakeDirectory map[string]*models.AuthUser

func (d fakeDirectory) GetUser(_ context.Context, userID string) (*models.AuthUser, error) {
	if u, ok := d[userID]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("no user record for uid %q", userID)
}

type fakeGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	chats   []ai.ChatRequest
	prompts []string
	calls   int
	// onCall runs before the reply is returned, outside the lock.
	onCall func()
}

func (g *fakeGenerator) Chat(_ context.Context, req ai.ChatRequest) (*ai.Reply, error) {
	if g.onCall != nil {
		g.onCall()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.chats = append(g.chats, req)
	if g.err != nil {
		return nil, g.err
	}
	return &ai.Reply{Text: g.text, Model: "fake", Usage: models.TokenUsage{PromptTokenCount: 10, CandidatesTokenCount: 5, TotalTokenCount: 15}}, nil
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (*ai.Reply, error) {
	if g.onCall != nil {
		g.onCall()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return nil, g.err
	}
	return &ai.Reply{Text: g.text, Model: "fake"}, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg notify.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, msg)
	return fmt.Sprintf("msg-%d", len(s.sent)), nil
}

type fakeMailer struct {
	mu   sync.Mutex
	to   []string
	body []string
}

func (m *fakeMailer) Enabled() bool { return true }

func (m *fakeMailer) SendEmail(recipient, _ string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, recipient)
	m.body = append(m.body, body)
	return nil
}

// plainSealer prefixes the text; enough to tell sealed from plain.
type plainSealer struct{}

func (plainSealer) Seal(s string) (string, error) { return "sealed:" + s, nil }

func (plainSealer) Open(s string) (string, error) {
	if len(s) < 7 || s[:7] != "sealed:" {
		return "", fmt.Errorf("malformed")
	}
	return s[7:], nil
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

var seq struct {
	sync.Mutex
	n int
}

func sequentialID() string {
	seq.Lock()
	defer seq.Unlock()
	seq.n++
	return fmt.Sprintf("id-%d", seq.n)
}

var (
	_ db.UserRepository        = (*fakeUsers)(nil)
	_ db.UsageRepository       = (*fakeUsage)(nil)
	_ db.PointsRepository      = (*fakePoints)(nil)
	_ db.ReferralRepository    = (*fakeReferrals)(nil)
	_ db.GiftCardRepository    = (*fakeGiftCards)(nil)
	_ db.AdminRepository       = (*fakeAdmins)(nil)
	_ db.AccountRepository     = (*fakeAccounts)(nil)
	_ db.SupportRepository     = (*fakeSupport)(nil)
	_ db.TransactionRepository = (*fakeTransactions)(nil)
	_ AuditService             = (*fakeAudit)(nil)
	_ Directory                = fakeDirectory(nil)
	_ ai.Generator             = (*fakeGenerator)(nil)
	_ notify.Sender            = (*fakeSender)(nil)
	_ Mailer                   = (*fakeMailer)(nil)
	_ ClaimSealer              = plainSealer{}
)
