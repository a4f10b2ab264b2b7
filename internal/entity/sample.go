package entity

import "time"

const (
	SampleStatusPending   = "pending"
	SampleStatusReceived  = "received"
	SampleStatusTesting   = "testing"
	SampleStatusCompleted = "completed"
)

// DbSample 表示一条检测样品记录。
type DbSample struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	SampleNo    string     `gorm:"column:sample_no;type:varchar(32);uniqueIndex;not null" json:"sample_no"`
	Name        string     `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Type        string     `gorm:"column:type;type:varchar(64);index" json:"type"`
	Status      string     `gorm:"column:status;type:varchar(20);index;not null;default:pending" json:"status"`
	SubmitterID uint       `gorm:"column:submitter_id;index" json:"submitter_id"`
	ReceivedAt  *time.Time `gorm:"column:received_at" json:"received_at"`
	Remark      string     `gorm:"column:remark;type:varchar(1024)" json:"remark"`
}

// TableName 指定表名。
func (DbSample) TableName() string {
	return "samples"
}

// SampleSummary 返回给客户端的样品描述。
type SampleSummary struct {
	ID          uint       `json:"id"`
	SampleNo    string     `json:"sample_no"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	SubmitterID uint       `json:"submitter_id"`
	ReceivedAt  *time.Time `json:"received_at,omitempty"`
	Remark      string     `json:"remark,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SampleQuery supports listing samples with pagination.
type SampleQuery struct {
	BaseParams
	Status  string `json:"status" form:"status" query:"status"`
	Type    string `json:"type" form:"type" query:"type"`
	Keyword string `json:"keyword" form:"keyword" query:"keyword"`
}

type SampleCreateRequest struct {
	Name   string `json:"name" binding:"required"`
	Type   string `json:"type"`
	Remark string `json:"remark"`
}

type SampleUpdateRequest struct {
	Name   *string `json:"name,omitempty"`
	Type   *string `json:"type,omitempty"`
	Status *string `json:"status,omitempty"`
	Remark *string `json:"remark,omitempty"`
}

type SampleReceiveRequest struct {
	Remark string `json:"remark"`
}
