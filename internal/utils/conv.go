package utils

import (
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// StringToInt converts string to int, returns 0 if error
func StringToInt(s string) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return i
}

// StringToUint returns 0 for anything that is not a positive integer.
func StringToUint(s string) uint {
	u, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return uint(u)
}

// Pagination normalises page/limit query values: page starts at 1, limit
// defaults to DefaultPageSize and is capped at MaxPageSize.
func Pagination(pageRaw, limitRaw string) (page, limit int) {
	page = StringToInt(pageRaw)
	if page < 1 {
		page = 1
	}
	limit = StringToInt(limitRaw)
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// TotalPages is ceil(total/limit), never below zero.
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
