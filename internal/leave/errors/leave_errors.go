package leaveerrors

import (
	"net/http"

	"leave-portal/internal/shared/apperror"
)

var (
	ErrInvalidType = apperror.New(
		apperror.CodeInvalidInput,
		"type must be one of Annual, Sick, Casual",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidDays = apperror.New(
		apperror.CodeInvalidInput,
		"days must be greater than zero",
		http.StatusBadRequest,
	)
	ErrMissingFields = apperror.New(
		apperror.CodeInvalidInput,
		"missing required fields",
		http.StatusBadRequest,
	)
	ErrLeaveNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave not found",
		http.StatusNotFound,
	)
	ErrOwnerNotFound = apperror.New(
		apperror.CodeNotFound,
		"user not found",
		http.StatusNotFound,
	)
	ErrLeaveAlreadyApproved = apperror.New(
		apperror.CodeConflict,
		"leave already approved",
		http.StatusConflict,
	)
	ErrLeaveAlreadyDecided = apperror.New(
		apperror.CodeConflict,
		"leave already decided",
		http.StatusConflict,
	)
)
