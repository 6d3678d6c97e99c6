package search

import (
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// BuildIndexMapping 对话记录：正文全文检索，用户/角色精确匹配
func BuildIndexMapping() *mapping.IndexMappingImpl {
	idx := mapping.NewIndexMapping()
	idx.DefaultAnalyzer = standard.Name

	// 文本
	text := mapping.NewTextFieldMapping()
	text.Store = true
	text.Index = true
	text.Analyzer = standard.Name
	text.IncludeTermVectors = true // 高亮更精准

	// 关键词
	kw := mapping.NewTextFieldMapping()
	kw.Store = true
	kw.Index = true
	kw.Analyzer = keyword.Name

	dt := mapping.NewDateTimeFieldMapping()
	dt.Store = true
	dt.Index = true

	msg := mapping.NewDocumentMapping()
	msg.Dynamic = false
	msg.AddFieldMappingsAt("text", text)
	msg.AddFieldMappingsAt("userId", kw)
	msg.AddFieldMappingsAt("role", kw)
	msg.AddFieldMappingsAt("createdAt", dt)
	idx.DefaultMapping = msg
	return idx
}
