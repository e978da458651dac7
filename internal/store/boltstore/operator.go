package boltstore

import (
	"context"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/talkincode/stockroom/internal/domain"
	"github.com/talkincode/stockroom/pkg/common"
	bolt "go.etcd.io/bbolt"
)

type operatorRepo struct {
	s *Store
}

// operatorDoc persists the password hash, which domain.Operator hides from JSON
type operatorDoc struct {
	domain.Operator
	PasswordHash string `json:"password_hash"`
}

func (r *operatorRepo) Create(ctx context.Context, o *domain.Operator) error {
	return r.s.update(ctx, "create operator", func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketOperators)
		if err != nil {
			return err
		}
		names, err := bucket(tx, bucketOperatorNames)
		if err != nil {
			return err
		}
		key := []byte(strings.ToLower(o.Username))
		if names.Get(key) != nil {
			return pkgerrors.Wrapf(domain.ErrConflict, "operator %q exists", o.Username)
		}
		if o.ID == 0 {
			o.ID = common.UUIDint64()
		}
		now := time.Now().UTC()
		o.CreatedAt, o.UpdatedAt = now, now
		if err := names.Put(key, itob(o.ID)); err != nil {
			return err
		}
		return putDoc(b, o.ID, operatorDoc{Operator: *o, PasswordHash: o.PasswordHash})
	})
}

func (r *operatorRepo) GetByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	var o *domain.Operator
	err := r.s.view(ctx, "get operator", func(tx *bolt.Tx) error {
		names, err := bucket(tx, bucketOperatorNames)
		if err != nil {
			return err
		}
		idb := names.Get([]byte(strings.ToLower(username)))
		if idb == nil {
			return pkgerrors.Wrapf(domain.ErrNotFound, "operator %q", username)
		}
		b, err := bucket(tx, bucketOperators)
		if err != nil {
			return err
		}
		var doc operatorDoc
		ok, err := getDoc(b, btoi(idb), &doc)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.Wrapf(domain.ErrNotFound, "operator %q", username)
		}
		doc.Operator.PasswordHash = doc.PasswordHash
		o = &doc.Operator
		return nil
	})
	return o, err
}

func (r *operatorRepo) Update(ctx context.Context, o *domain.Operator) error {
	return r.s.update(ctx, "update operator", func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketOperators)
		if err != nil {
			return err
		}
		if b.Get(itob(o.ID)) == nil {
			return pkgerrors.Wrapf(domain.ErrNotFound, "operator %d", o.ID)
		}
		o.UpdatedAt = time.Now().UTC()
		return putDoc(b, o.ID, operatorDoc{Operator: *o, PasswordHash: o.PasswordHash})
	})
}
