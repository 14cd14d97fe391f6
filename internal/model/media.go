package model

import "fmt"

// Media 上传的图片元数据，TweetID 在绑定推文前为空
type Media struct {
	ID  int64  `gorm:"primaryKey;autoIncrement"`
	URL string `gorm:"column:url;type:varchar(255);uniqueIndex;not null"`
	// StorageKey 图片在 BlobStore 中的键，不含上传者凭证
	StorageKey string `gorm:"type:varchar(255);not null;default:''"`
	TweetID    *int64 `gorm:"index:idx_media_tweet"`
}

func (Media) TableName() string { return "media" }

// MediaURL 上传者 api key 与原始文件名组成的去重键，只在服务端使用，不得对外输出
func MediaURL(apiKey, filename string) string { return apiKey + "_" + filename }

const MediaPathPrefix = "/media/"

// MediaStorageKey 以 id 前缀区分不同上传者的同名文件
func MediaStorageKey(id int64, filename string) string { return fmt.Sprintf("%d_%s", id, filename) }

// PublicPath 对外展示的图片地址
func (m Media) PublicPath() string { return MediaPathPrefix + m.StorageKey }
