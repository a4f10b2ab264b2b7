package entity

import "time"

// DbAttachment 表示挂在样品上的附件文件，ObjectKey 由存储后端返回。
type DbAttachment struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	SampleID    uint      `gorm:"column:sample_id;index;not null" json:"sample_id"`
	ObjectKey   string    `gorm:"column:object_key;type:varchar(512);not null" json:"-"`
	FileName    string    `gorm:"column:file_name;type:varchar(255)" json:"file_name"`
	Size        int64     `gorm:"column:size" json:"size"`
	ContentType string    `gorm:"column:content_type;type:varchar(128)" json:"content_type"`
	UploaderID  uint      `gorm:"column:uploader_id;index" json:"uploader_id"`
}

// TableName 指定表名。
func (DbAttachment) TableName() string {
	return "attachments"
}

// AttachmentSummary 返回给客户端的附件描述。
type AttachmentSummary struct {
	ID          uint      `json:"id"`
	FileName    string    `json:"file_name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}
