package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kusinahub/kusina-api/cart"
	"github.com/kusinahub/kusina-api/lifecycle"
	"github.com/kusinahub/kusina-api/models"
	"github.com/kusinahub/kusina-api/storage"
)

const (
	DefaultRetryInterval = 2 * time.Second
	DefaultMaxAttempts   = 5

	// Signed proof URLs live long enough for staff to review the order later.
	proofURLTTL = 7 * 24 * time.Hour
)

var (
	ErrEmptyCart = errors.New("cart is empty")

	// ErrNonPositiveTotal rejects submissions whose lines add up to zero,
	// which can happen when every priced component was toggled off since
	// the cart was built.
	ErrNonPositiveTotal = errors.New("order total must be positive")

	// ErrProofUnavailable means the uploaded proof never became readable
	// within the retry budget. No order is created in that case, so the
	// customer keeps their cart and can simply retry.
	ErrProofUnavailable = errors.New("payment proof could not be resolved")
)

// ValidationError reports a missing required checkout field. It blocks
// submission before anything is written.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return e.Field + " is required"
}

// ProofStore is the slice of object storage the submitter needs.
type ProofStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Request struct {
	Cart          *cart.Cart
	CustomerName  string
	Phone         string
	PaymentMethod string
	Proof         io.Reader
	ProofType     string
}

type Submitter struct {
	DB            *gorm.DB
	Proofs        ProofStore
	RetryInterval time.Duration
	MaxAttempts   int
}

// Submit turns the cart into a persisted order with its items. The proof is
// resolved first, so a failed upload aborts before any row is written; order
// and order items are then created inside one transaction, so a submission
// either lands fully or not at all. The cart is cleared only on success.
func (s *Submitter) Submit(ctx context.Context, req Request) (*models.Order, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	proofURL := ""
	if req.PaymentMethod == models.PaymentGCash {
		url, err := s.resolveProof(ctx, req)
		if err != nil {
			return nil, err
		}
		proofURL = url
	}

	status, err := lifecycle.InitialStatus(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		CustomerName:  req.CustomerName,
		Phone:         req.Phone,
		Total:         req.Cart.Total(),
		PaymentMethod: req.PaymentMethod,
		ProofUrl:      proofURL,
		Status:        status,
	}

	tx := s.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range req.Cart.Items() {
		options := datatypes.JSONMap{}
		for _, opt := range item.Options {
			options[opt.GroupName] = opt.Name
		}

		orderItem := models.OrderItem{
			OrderID:     int(order.ID),
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.UnitPrice(),
			Options:     options,
			GroupTag:    item.GroupTag,
		}
		if err := tx.Create(&orderItem).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create order items: %w", err)
		}
		order.OrderItems = append(order.OrderItems, orderItem)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	req.Cart.Clear()
	return &order, nil
}

// resolveProof uploads the proof image under a fresh key and polls for a
// signed URL until the object is visible. The wait is cancellable: a caller
// navigating away stops the loop through ctx.
func (s *Submitter) resolveProof(ctx context.Context, req Request) (string, error) {
	if req.Proof == nil {
		return "", &ValidationError{Field: "paymentProof"}
	}

	key := fmt.Sprintf("proofs/%s", uuid.NewString())
	if _, err := s.Proofs.Upload(ctx, key, req.Proof, req.ProofType); err != nil {
		return "", fmt.Errorf("failed to upload payment proof: %w", err)
	}

	interval := s.RetryInterval
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		url, err := s.Proofs.SignedURL(ctx, key, proofURLTTL)
		if err == nil {
			return url, nil
		}
		if !errors.Is(err, storage.ErrObjectNotFound) {
			return "", err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}
	}

	return "", ErrProofUnavailable
}

func validate(req Request) error {
	if req.Cart == nil || req.Cart.Len() == 0 {
		return ErrEmptyCart
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		return &ValidationError{Field: "customerName"}
	}
	if strings.TrimSpace(req.Phone) == "" {
		return &ValidationError{Field: "phone"}
	}
	if req.PaymentMethod != models.PaymentGCash && req.PaymentMethod != models.PaymentPayAtStore {
		return &ValidationError{Field: "paymentMethod"}
	}
	if req.Cart.Total() <= 0 {
		return ErrNonPositiveTotal
	}
	return nil
}
