package service

import "errors"

var (
	ErrCategoryNotFound    = errors.New("category not found")
	ErrSubCategoryNotFound = errors.New("subcategory not found")
	ErrItemNotFound        = errors.New("item not found")

	ErrHistoryNotFound = errors.New("history item not found")

	ErrLegalDocumentNotFound  = errors.New("legal document not found")
	ErrUnknownDocumentVersion = errors.New("document version is not an active version of this document")

	ErrBookNotFound         = errors.New("pdf book not found")
	ErrPurchaseNotFound     = errors.New("purchase not found")
	ErrAlreadyPurchased     = errors.New("you already own this book")
	ErrDownloadLimitReached = errors.New("download limit reached")
	ErrAccessExpired        = errors.New("access to this book has expired")
	ErrPurchaseInactive     = errors.New("purchase is not active")
	ErrFileMissing          = errors.New("book file is unavailable")

	ErrUserNotFound = errors.New("user not found")

	ErrRealtimeUnavailable = errors.New("realtime service is not configured")
)
