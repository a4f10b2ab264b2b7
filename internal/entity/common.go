package entity

// Re-export shared value types from the common package.

import (
	"lims/internal/entity/common"
)

type Response = common.Response
type ResponseItems = common.ResponseItems
type ErrorDetail = common.ErrorDetail
type Pagination = common.Pagination
type BaseParams = common.BaseParams

var NewPagination = common.NewPagination
