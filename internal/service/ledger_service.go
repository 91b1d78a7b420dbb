package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/payshare/internal/auth"
	"github.com/mmynk/payshare/internal/calculator"
	"github.com/mmynk/payshare/internal/membership"
	"github.com/mmynk/payshare/internal/metrics"
	"github.com/mmynk/payshare/internal/models"
	"github.com/mmynk/payshare/internal/money"
	"github.com/mmynk/payshare/internal/storage"
)

// ErrSessionsDisabled is returned by Login and Authenticate when the service
// was built without a JWT manager.
var ErrSessionsDisabled = errors.New("sessions are not configured")

// LedgerService exposes the collective ledger: members, credentials, purchases,
// liquidations and balances. Every operation runs in a single store transaction.
type LedgerService struct {
	store           storage.Store
	creds           *auth.Credentials
	sessions        *auth.JWTManager
	metrics         *metrics.Metrics
	logger          *slog.Logger
	now             func() time.Time
	defaultCurrency string
}

// Option configures a LedgerService.
type Option func(*LedgerService)

// WithClock sets the clock used for created/modified timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *LedgerService) { s.logger = logger }
}

// WithMetrics enables Prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *LedgerService) { s.metrics = m }
}

// WithSessions enables Login and Authenticate.
func WithSessions(m *auth.JWTManager) Option {
	return func(s *LedgerService) { s.sessions = m }
}

// WithDefaultCurrency sets the currency of collectives created without one.
func WithDefaultCurrency(code string) Option {
	return func(s *LedgerService) { s.defaultCurrency = strings.ToUpper(code) }
}

// NewLedgerService creates a LedgerService over store, hashing passwords with hasher.
func NewLedgerService(store storage.Store, hasher auth.Hasher, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:           store,
		logger:          slog.Default(),
		now:             time.Now,
		defaultCurrency: models.DefaultCurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.creds = auth.NewCredentials(hasher, s.now)
	return s
}

// CreateUser provisions an active user. Identity normally lives outside the
// ledger; this exists for tooling and tests.
func (s *LedgerService) CreateUser(ctx context.Context, username string) (*models.User, error) {
	if err := models.ValidateName("username", username); err != nil {
		return nil, err
	}

	user := &models.User{
		ID:         uuid.NewString(),
		Username:   username,
		Active:     true,
		Timestamps: models.NewTimestamps(s.now()),
	}
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		s.logger.Error("CreateUser failed", "username", username, "error", err)
		return nil, err
	}

	s.logger.Info("User created", "user_id", user.ID, "username", username)
	return user, nil
}

// CreateCollective creates a collective protected by password. An empty
// currency means the service default.
func (s *LedgerService) CreateCollective(ctx context.Context, name, password, currency string) (*models.Collective, error) {
	if err := models.ValidateName("collective name", name); err != nil {
		return nil, err
	}
	if currency == "" {
		currency = s.defaultCurrency
	}
	currency = strings.ToUpper(currency)
	if !money.ValidCurrency(currency) {
		return nil, fmt.Errorf("%w: %q", money.ErrUnknownCurrency, currency)
	}

	c := &models.Collective{
		ID:         uuid.NewString(),
		Name:       name,
		Key:        uuid.NewString(),
		Currency:   currency,
		Timestamps: models.NewTimestamps(s.now()),
	}
	if _, err := s.creds.SetPassword(c, password); err != nil {
		return nil, err
	}

	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.CreateCollective(ctx, c)
	})
	if err != nil {
		s.logger.Error("CreateCollective failed", "name", name, "error", err)
		return nil, err
	}

	s.logger.Info("Collective created", "collective_id", c.ID, "name", name, "currency", currency)
	return c, nil
}

// GetCollective retrieves a collective by ID.
func (s *LedgerService) GetCollective(ctx context.Context, collectiveID string) (*models.Collective, error) {
	var c *models.Collective
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		c, err = tx.GetCollective(ctx, collectiveID)
		return err
	})
	return c, err
}

// Stats computes the collective's balances from one consistent snapshot of
// its members, purchases and liquidations.
func (s *LedgerService) Stats(ctx context.Context, collectiveID string) (calculator.Stats, error) {
	var stats calculator.Stats
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		c, err := tx.GetCollective(ctx, collectiveID)
		if err != nil {
			return err
		}
		members, err := tx.ListMembers(ctx, collectiveID)
		if err != nil {
			return err
		}
		purchases, err := tx.ListPurchases(ctx, collectiveID, storage.EntryFilter{})
		if err != nil {
			return err
		}
		liquidations, err := tx.ListLiquidations(ctx, collectiveID, storage.EntryFilter{})
		if err != nil {
			return err
		}

		stats, err = calculator.ComputeStats(c.Currency, memberIDs(members), toPurchaseInputs(purchases), toLiquidationInputs(liquidations))
		return err
	})
	if err != nil {
		s.logger.Error("Stats failed", "collective_id", collectiveID, "error", err)
		return calculator.Stats{}, err
	}

	s.logger.Debug("Stats computed",
		"collective_id", collectiveID,
		"members", len(stats.SortedBalances),
		"overall_purchased", stats.OverallPurchased.String(),
	)
	return stats, nil
}

// SettlePlan proposes liquidations that would bring every balance to zero.
func (s *LedgerService) SettlePlan(ctx context.Context, collectiveID string) ([]calculator.Transfer, error) {
	stats, err := s.Stats(ctx, collectiveID)
	if err != nil {
		return nil, err
	}
	return calculator.SettlePlan(stats.SortedBalances), nil
}

// AddMember makes the user a member of the collective. Adding an existing
// member is a no-op; the result reports whether a membership was created.
func (s *LedgerService) AddMember(ctx context.Context, collectiveID, userID string) (bool, error) {
	var added bool
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetCollective(ctx, collectiveID); err != nil {
			return err
		}
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		var err error
		added, err = membership.New(tx, s.now).AddMember(ctx, collectiveID, userID)
		return err
	})
	if err != nil {
		s.logger.Error("AddMember failed", "collective_id", collectiveID, "user_id", userID, "error", err)
		return false, err
	}

	if added {
		s.logger.Info("Member added", "collective_id", collectiveID, "user_id", userID)
	}
	return added, nil
}

// IsMember reports whether the user belongs to the collective.
func (s *LedgerService) IsMember(ctx context.Context, collectiveID, userID string) (bool, error) {
	var ok bool
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		ok, err = membership.New(tx, s.now).IsMember(ctx, collectiveID, userID)
		return err
	})
	return ok, err
}

// SetPassword changes the collective's password and reports whether the
// credentials changed. A different password rotates the access token, which
// also revokes every session issued for the old one.
//
// The comparison and the write happen under a row lock and a version check.
// On storage.ErrConflict nothing was written; reload before trying again.
func (s *LedgerService) SetPassword(ctx context.Context, collectiveID, plaintext string) (bool, error) {
	var changed bool
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		c, err := tx.LockCollective(ctx, collectiveID)
		if err != nil {
			return err
		}
		changed, err = s.creds.SetPassword(c, plaintext)
		if err != nil || !changed {
			return err
		}
		return tx.UpdateCollectiveCredentials(ctx, c)
	})
	if err != nil {
		s.logger.Error("SetPassword failed", "collective_id", collectiveID, "error", err)
		return false, err
	}

	if changed {
		s.metrics.IncrementTokenRotation()
		s.logger.Info("Collective token rotated", "collective_id", collectiveID)
	}
	return changed, nil
}

// CheckPassword reports whether plaintext is the collective's current password.
func (s *LedgerService) CheckPassword(ctx context.Context, collectiveID, plaintext string) (bool, error) {
	c, err := s.GetCollective(ctx, collectiveID)
	if err != nil {
		return false, err
	}
	return s.creds.CheckPassword(c, plaintext), nil
}

// Login exchanges a collective key and password for a session JWT.
func (s *LedgerService) Login(ctx context.Context, key, password string) (string, error) {
	if s.sessions == nil {
		return "", ErrSessionsDisabled
	}

	var c *models.Collective
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		c, err = tx.GetCollectiveByKey(ctx, key)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("Login rejected: unknown key")
		return "", auth.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if !s.creds.CheckPassword(c, password) {
		s.logger.Warn("Login rejected: wrong password", "collective_id", c.ID)
		return "", auth.ErrInvalidCredentials
	}

	session, err := s.sessions.Generate(c)
	if err != nil {
		return "", err
	}
	s.logger.Info("Login successful", "collective_id", c.ID)
	return session, nil
}

// Authenticate resolves a session JWT to its collective. Sessions issued
// before the last token rotation are rejected.
func (s *LedgerService) Authenticate(ctx context.Context, session string) (*models.Collective, error) {
	if s.sessions == nil {
		return nil, ErrSessionsDisabled
	}

	claims, err := s.sessions.Validate(session)
	if err != nil {
		return nil, err
	}

	c, err := s.GetCollective(ctx, claims.CollectiveID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, auth.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !claims.Matches(c) {
		s.logger.Warn("Session rejected: token rotated", "collective_id", c.ID)
		return nil, auth.ErrInvalidToken
	}
	return c, nil
}

// CollectiveByToken resolves the collective currently holding the bearer token.
func (s *LedgerService) CollectiveByToken(ctx context.Context, token string) (*models.Collective, error) {
	if token == "" {
		return nil, auth.ErrMissingToken
	}

	var c *models.Collective
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		c, err = tx.GetCollectiveByToken(ctx, token)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, auth.ErrInvalidToken
	}
	return c, err
}

// CreatePurchase records that buyerID paid price on behalf of the collective.
// The buyer must be a member; otherwise nothing is written.
func (s *LedgerService) CreatePurchase(ctx context.Context, collectiveID, buyerID, name string, price money.Money) (*models.Purchase, error) {
	if err := validateEntry("purchase name", name, price); err != nil {
		return nil, err
	}

	p := &models.Purchase{
		ID:           uuid.NewString(),
		CollectiveID: collectiveID,
		BuyerID:      buyerID,
		Name:         name,
		Price:        price,
		Timestamps:   models.NewTimestamps(s.now()),
	}
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		c, err := tx.GetCollective(ctx, collectiveID)
		if err != nil {
			return err
		}
		if err := money.SameCurrency(c.Currency, price); err != nil {
			return err
		}
		if err := membership.New(tx, s.now).CheckPurchase(ctx, p); err != nil {
			return err
		}
		return tx.InsertPurchase(ctx, p)
	})
	if err != nil {
		s.logRejection("CreatePurchase", err, "collective_id", collectiveID, "buyer_id", buyerID)
		return nil, err
	}

	s.metrics.IncrementPurchaseCreated()
	s.logger.Info("Purchase created",
		"purchase_id", p.ID,
		"collective_id", collectiveID,
		"buyer_id", buyerID,
		"price", price.String(),
	)
	return p, nil
}

// CreateLiquidation records that debtorID paid amount back to creditorID.
// Both must be members and must differ; otherwise nothing is written.
func (s *LedgerService) CreateLiquidation(ctx context.Context, collectiveID, debtorID, creditorID, name string, amount money.Money) (*models.Liquidation, error) {
	if err := validateEntry("liquidation name", name, amount); err != nil {
		return nil, err
	}

	l := &models.Liquidation{
		ID:           uuid.NewString(),
		CollectiveID: collectiveID,
		DebtorID:     debtorID,
		CreditorID:   creditorID,
		Name:         name,
		Amount:       amount,
		Timestamps:   models.NewTimestamps(s.now()),
	}
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		c, err := tx.GetCollective(ctx, collectiveID)
		if err != nil {
			return err
		}
		if err := money.SameCurrency(c.Currency, amount); err != nil {
			return err
		}
		if err := membership.New(tx, s.now).CheckLiquidation(ctx, l); err != nil {
			return err
		}
		return tx.InsertLiquidation(ctx, l)
	})
	if err != nil {
		s.logRejection("CreateLiquidation", err,
			"collective_id", collectiveID, "debtor_id", debtorID, "creditor_id", creditorID)
		return nil, err
	}

	s.metrics.IncrementLiquidationCreated()
	s.logger.Info("Liquidation created",
		"liquidation_id", l.ID,
		"collective_id", collectiveID,
		"debtor_id", debtorID,
		"creditor_id", creditorID,
		"amount", amount.String(),
	)
	return l, nil
}

// SoftDelete marks the purchase or liquidation with entryID as deleted.
// Deleting an already deleted entry succeeds without changes; the bool
// reports whether this call changed it.
func (s *LedgerService) SoftDelete(ctx context.Context, entryID string) (models.Entry, bool, error) {
	var entry models.Entry
	var changed bool
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		p, err := tx.GetPurchase(ctx, entryID)
		if err == nil {
			entry = models.PurchaseEntry(p)
			if p.Deleted {
				return nil
			}
			p.Deleted = true
			p.Touch(s.now())
			changed = true
			return tx.MarkPurchaseDeleted(ctx, p)
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		l, err := tx.GetLiquidation(ctx, entryID)
		if err != nil {
			return err
		}
		entry = models.LiquidationEntry(l)
		if l.Deleted {
			return nil
		}
		l.Deleted = true
		l.Touch(s.now())
		changed = true
		return tx.MarkLiquidationDeleted(ctx, l)
	})
	if err != nil {
		s.logger.Error("SoftDelete failed", "entry_id", entryID, "error", err)
		return models.Entry{}, false, err
	}

	if changed {
		s.metrics.IncrementEntryDeleted(entry.Kind.String())
		s.logger.Info("Entry deleted", "entry_id", entryID, "kind", entry.Kind.String())
	}
	return entry, changed, nil
}

// GetPurchase retrieves a purchase by ID, including deleted ones.
func (s *LedgerService) GetPurchase(ctx context.Context, id string) (*models.Purchase, error) {
	var p *models.Purchase
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		p, err = tx.GetPurchase(ctx, id)
		return err
	})
	return p, err
}

// GetLiquidation retrieves a liquidation by ID, including deleted ones.
func (s *LedgerService) GetLiquidation(ctx context.Context, id string) (*models.Liquidation, error) {
	var l *models.Liquidation
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		l, err = tx.GetLiquidation(ctx, id)
		return err
	})
	return l, err
}

// ListEntries returns the collective's purchases and liquidations matching
// filter, newest first. A buyer filter excludes liquidations; a debtor or
// creditor filter excludes purchases.
func (s *LedgerService) ListEntries(ctx context.Context, collectiveID string, filter storage.EntryFilter) ([]models.Entry, error) {
	var entries []models.Entry
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetCollective(ctx, collectiveID); err != nil {
			return err
		}
		var (
			purchases    []*models.Purchase
			liquidations []*models.Liquidation
			err          error
		)
		if filter.DebtorID == "" && filter.CreditorID == "" {
			if purchases, err = tx.ListPurchases(ctx, collectiveID, filter); err != nil {
				return err
			}
		}
		if filter.BuyerID == "" {
			if liquidations, err = tx.ListLiquidations(ctx, collectiveID, filter); err != nil {
				return err
			}
		}

		entries = make([]models.Entry, 0, len(purchases)+len(liquidations))
		for _, p := range purchases {
			entries = append(entries, models.PurchaseEntry(p))
		}
		for _, l := range liquidations {
			entries = append(entries, models.LiquidationEntry(l))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		ti, tj := entries[i].CreatedAt(), entries[j].CreatedAt()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return entries[i].ID() < entries[j].ID()
	})
	return entries, nil
}

// logRejection logs guard and validation failures as warnings and counts
// guard rejections; anything else is an error.
func (s *LedgerService) logRejection(op string, err error, args ...any) {
	args = append(args, "error", err)
	if reason := membership.Reason(err); reason != "" {
		s.metrics.IncrementGuardRejection(reason)
		s.logger.Warn(op+" rejected", append(args, "reason", reason)...)
		return
	}
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, money.ErrCurrencyMismatch) {
		s.logger.Warn(op+" rejected", args...)
		return
	}
	s.logger.Error(op+" failed", args...)
}

func validateEntry(field, name string, amount money.Money) error {
	if err := models.ValidateName(field, name); err != nil {
		return err
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %s", models.ErrInvalidInput, amount.StringFixed())
	}
	return amount.CheckBounds()
}

func memberIDs(users []*models.User) []string {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func toPurchaseInputs(purchases []*models.Purchase) []calculator.PurchaseForBalance {
	out := make([]calculator.PurchaseForBalance, len(purchases))
	for i, p := range purchases {
		out[i] = calculator.PurchaseForBalance{BuyerID: p.BuyerID, Price: p.Price, Deleted: p.Deleted}
	}
	return out
}

func toLiquidationInputs(liquidations []*models.Liquidation) []calculator.LiquidationForBalance {
	out := make([]calculator.LiquidationForBalance, len(liquidations))
	for i, l := range liquidations {
		out[i] = calculator.LiquidationForBalance{
			DebtorID:   l.DebtorID,
			CreditorID: l.CreditorID,
			Amount:     l.Amount,
			Deleted:    l.Deleted,
		}
	}
	return out
}
