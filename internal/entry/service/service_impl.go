package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/formpay/internal/clock"
	"github.com/smallbiznis/formpay/internal/entry/domain"
	"github.com/smallbiznis/formpay/pkg/db"
	"github.com/smallbiznis/formpay/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Store {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("entry.service"),
		genID: p.GenID,
		clock: clk,
		repo:  p.Repo,
	}
}

func (s *Service) SaveEntry(ctx context.Context, entry *domain.Entry) error {
	if entry == nil {
		return domain.ErrEntryNotFound
	}
	now := s.clock.Now()
	if entry.ID == 0 {
		entry.ID = s.genID.Generate()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	entry.Currency = strings.ToUpper(strings.TrimSpace(entry.Currency))
	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrEntryExists
		}
		return err
	}
	return nil
}

func (s *Service) GetEntry(ctx context.Context, id snowflake.ID) (*domain.Entry, error) {
	entry, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domain.ErrEntryNotFound
	}
	return entry, nil
}

func (s *Service) GetEntryIDByTransactionID(ctx context.Context, transactionID string) (snowflake.ID, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return 0, domain.ErrEntryNotFound
	}
	id, err := s.repo.FindIDByTransactionID(ctx, s.db, transactionID)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, domain.ErrEntryNotFound
	}
	return id, nil
}

func (s *Service) UpdateProperty(ctx context.Context, id snowflake.ID, property domain.Property, value any) error {
	return s.repo.UpdateProperty(ctx, s.db, id, property, value)
}

func (s *Service) UpdateMeta(ctx context.Context, id snowflake.ID, key string, value any) error {
	return s.repo.UpdateMeta(ctx, s.db, id, key, value)
}

func (s *Service) AddNote(ctx context.Context, id snowflake.ID, text string) error {
	return s.addNote(ctx, s.db, id, text)
}

func (s *Service) ListNotes(ctx context.Context, id snowflake.ID) ([]domain.Note, error) {
	return s.repo.ListNotes(ctx, s.db, id)
}

func (s *Service) addNote(ctx context.Context, db *gorm.DB, id snowflake.ID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return s.repo.InsertNote(ctx, db, &domain.Note{
		ID:        s.genID.Generate(),
		EntryID:   id,
		Note:      text,
		CreatedAt: s.clock.Now(),
	})
}

// Apply writes the property changes an action implies and appends its note
// in a single transaction.
func (s *Service) Apply(ctx context.Context, action domain.Action) error {
	entry, err := s.GetEntry(ctx, action.EntryID)
	if err != nil {
		return err
	}

	currency := action.Currency
	if currency == "" {
		currency = entry.Currency
	}
	amount := money.Display(action.Amount, currency)

	var (
		props = map[domain.Property]any{}
		note  string
	)

	switch action.Type {
	case domain.ActionCompleteAuthorization:
		props[domain.PropertyPaymentStatus] = domain.PaymentStatusAuthorized
		setIf(props, domain.PropertyTransactionID, action.TransactionID)
		setIf(props, domain.PropertyPaymentMethod, action.PaymentMethod)
		if !action.Amount.IsZero() {
			props[domain.PropertyPaymentAmount] = action.Amount
		}
		note = fmt.Sprintf("Payment has been authorized. Amount: %s. Transaction Id: %s.", amount, action.TransactionID)
	case domain.ActionCompletePayment:
		props[domain.PropertyPaymentStatus] = domain.PaymentStatusPaid
		props[domain.PropertyPaymentDate] = s.clock.Now()
		setIf(props, domain.PropertyTransactionID, action.TransactionID)
		setIf(props, domain.PropertyPaymentMethod, action.PaymentMethod)
		if !action.Amount.IsZero() {
			props[domain.PropertyPaymentAmount] = action.Amount
		}
		note = fmt.Sprintf("Payment has been completed. Amount: %s. Transaction Id: %s.", amount, action.TransactionID)
	case domain.ActionAddPendingPayment:
		props[domain.PropertyPaymentStatus] = domain.PaymentStatusPending
		setIf(props, domain.PropertyTransactionID, action.TransactionID)
		setIf(props, domain.PropertyPaymentMethod, action.PaymentMethod)
		if !action.Amount.IsZero() {
			props[domain.PropertyPaymentAmount] = action.Amount
		}
		note = fmt.Sprintf("Payment is pending. Amount: %s. Transaction Id: %s.", amount, action.TransactionID)
	case domain.ActionFailPayment:
		props[domain.PropertyPaymentStatus] = domain.PaymentStatusFailed
		note = fmt.Sprintf("Payment has failed. Amount: %s.", amount)
	case domain.ActionRefundPayment:
		props[domain.PropertyPaymentStatus] = domain.PaymentStatusRefunded
		note = fmt.Sprintf("Payment has been refunded. Amount: %s. Transaction Id: %s.", amount, action.TransactionID)
	case domain.ActionVoidAuthorization:
		props[domain.PropertyPaymentStatus] = domain.PaymentStatusVoided
		note = fmt.Sprintf("Authorization has been voided. Transaction Id: %s.", action.TransactionID)
	case domain.ActionCreateSubscription:
		props[domain.PropertyPaymentStatus] = domain.PaymentStatusActive
		props[domain.PropertyTransactionType] = domain.TransactionTypeSubscription
		props[domain.PropertyPaymentDate] = s.clock.Now()
		setIf(props, domain.PropertyTransactionID, action.SubscriptionID)
		setIf(props, domain.PropertyPaymentMethod, action.PaymentMethod)
		if !action.Amount.IsZero() {
			props[domain.PropertyPaymentAmount] = action.Amount
		}
		note = fmt.Sprintf("Subscription has been created. Subscription Id: %s.", action.SubscriptionID)
	case domain.ActionAddSubscriptionPayment:
		props[domain.PropertyPaymentStatus] = domain.PaymentStatusActive
		props[domain.PropertyPaymentDate] = s.clock.Now()
		if !action.Amount.IsZero() {
			props[domain.PropertyPaymentAmount] = action.Amount
		}
		note = fmt.Sprintf("Subscription has been paid. Amount: %s. Subscription Id: %s, Transaction Id: %s", amount, action.SubscriptionID, action.TransactionID)
	case domain.ActionFailSubscriptionPayment:
		note = fmt.Sprintf("Subscription payment has failed. Amount: %s. Subscription Id: %s.", amount, action.SubscriptionID)
	case domain.ActionCancelSubscription:
		props[domain.PropertyPaymentStatus] = domain.PaymentStatusCancelled
		note = fmt.Sprintf("Subscription has been cancelled. Subscription Id: %s.", action.SubscriptionID)
	case domain.ActionExpireSubscription:
		props[domain.PropertyPaymentStatus] = domain.PaymentStatusExpired
		note = fmt.Sprintf("Subscription has expired. Subscription Id: %s.", action.SubscriptionID)
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownAction, action.Type)
	}

	if action.Note != "" {
		note = action.Note
	}
	if action.Reason != "" {
		note = strings.TrimSpace(note + " Reason: " + action.Reason + ".")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, property := range orderedProperties {
			value, ok := props[property]
			if !ok {
				continue
			}
			if err := s.repo.UpdateProperty(ctx, tx, entry.ID, property, value); err != nil {
				return err
			}
		}
		return s.addNote(ctx, tx, entry.ID, note)
	})
	if err != nil {
		return err
	}

	s.log.Info("entry action applied",
		zap.String("entry_id", entry.ID.String()),
		zap.String("action", string(action.Type)),
		zap.String("transaction_id", action.TransactionID),
		zap.String("previous_status", string(entry.PaymentStatus)),
	)
	return nil
}

var orderedProperties = []domain.Property{
	domain.PropertyPaymentStatus,
	domain.PropertyTransactionType,
	domain.PropertyTransactionID,
	domain.PropertyPaymentAmount,
	domain.PropertyPaymentMethod,
	domain.PropertyPaymentDate,
}

func setIf(props map[domain.Property]any, property domain.Property, value string) {
	if value = strings.TrimSpace(value); value != "" {
		props[property] = value
	}
}
