// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionArticles 文章切片集合
	CollectionArticles = "articles"
)

// ArticlesSchema 文章切片 Collection Schema。
// 每条记录是一个文章切片：向量来自切片文本，payload 冗余携带完整文章字段，
// 这样检索命中后无需二次查询即可取回来源文章。
func ArticlesSchema(dim int) *entity.Schema {
	return &entity.Schema{
		CollectionName: CollectionArticles,
		Description:    "News article chunks for semantic search",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(dim),
				},
			},
			{
				Name:     "title",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "1024",
				},
			},
			{
				Name:     "content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     "url",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "2048",
				},
			},
			{
				Name:     "date_published",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
		},
	}
}

// ArticlePoint 待写入的文章切片
type ArticlePoint struct {
	ID            string    `json:"id"`
	Vector        []float32 `json:"vector"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	URL           string    `json:"url"`
	DatePublished string    `json:"date_published"`
}

// ScoredPoint 检索结果
type ScoredPoint struct {
	ID            string
	Score         float32
	Title         string
	Content       string
	URL           string
	DatePublished string
}
