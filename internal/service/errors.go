package service

import (
	"errors"
	"fmt"

	"github.com/d60-Lab/microblog/internal/repository"
)

var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrAlreadyFollowing = errors.New("already following")
	ErrNotFollowing     = errors.New("not following")
	ErrConflict         = errors.New("conflicting concurrent write")
	ErrFollowSelf       = errors.New("cannot follow self")
	ErrInvalidInput     = errors.New("invalid input")

	// ErrStore 用于 errors.Is 判断基础设施错误
	ErrStore = errors.New("store error")
)

// StoreError 存储层失败；对外只暴露 Op
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

var domainErrors = []error{
	ErrUnauthenticated, ErrNotFound, ErrForbidden, ErrAlreadyFollowing,
	ErrNotFollowing, ErrConflict, ErrFollowSelf, ErrInvalidInput, ErrStore,
}

// wrapStore 领域错误原样返回，其余包装为 *StoreError
func wrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return &StoreError{Op: op, Err: err}
}
