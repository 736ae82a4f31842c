// Package prompt renders schema descriptions into generation instructions.
// Every prompt fixes the answer to Traditional Chinese Markdown so that
// independently generated sections read as one document.
package prompt

import (
	"fmt"
	"strings"

	"dbmarkdown/internal/introspect"
)

const (
	languageLine = "請使用繁體中文回應，並以Markdown格式輸出。"
	schemaIntro  = "資料庫結構如下："
)

// Overview renders the prompt for the schema overview section. Only key
// columns are listed to keep the prompt small for large selections.
func Overview(tables []introspect.Table) string {
	var sb strings.Builder
	sb.WriteString("請為以下資料庫結構生成一個簡要的概述，使用Markdown格式。\n")
	sb.WriteString("只需生成資料庫的總體概述和表格之間的關係，不需要詳細描述每個表格和列。\n")
	sb.WriteString(languageLine + "\n\n")
	sb.WriteString(schemaIntro + "\n\n")

	for _, t := range tables {
		writeTableHeader(&sb, t)
		pks, fks := t.KeyColumns()
		if len(pks) > 0 {
			sb.WriteString("主鍵:\n")
			for _, c := range pks {
				fmt.Fprintf(&sb, "  - %s\n", c.Name)
			}
		}
		if len(fks) > 0 {
			sb.WriteString("外鍵:\n")
			for _, c := range fks {
				fmt.Fprintf(&sb, "  - %s -> %s.%s\n", c.Name, c.FKTable, c.FKColumn)
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString("請生成：\n")
	sb.WriteString("1. 資料庫名稱和用途的概述\n")
	sb.WriteString("2. 表格之間的關係摘要\n")
	sb.WriteString("3. 整體資料庫結構的簡要說明\n")
	return sb.String()
}

// Detail renders the prompt describing every included column of tables.
// withOverview asks for a schema overview as well; it is set when the
// whole selection fits in one request.
func Detail(tables []introspect.Table, withOverview bool) string {
	var sb strings.Builder
	if withOverview {
		sb.WriteString("請為以下資料庫結構生成詳細的Markdown格式文檔。文檔應包含每個表的用途和每個列的精簡描述。\n")
	} else {
		sb.WriteString("請為以下表格生成詳細的Markdown格式文檔。只需描述這些特定表格，不需要重複資料庫概述。\n")
	}
	sb.WriteString(languageLine + "\n\n")
	sb.WriteString(schemaIntro + "\n\n")

	for _, t := range tables {
		writeTableHeader(&sb, t)
		sb.WriteString("列:\n")
		for _, c := range t.IncludedColumns() {
			sb.WriteString(ColumnLine(c) + "\n")
		}
		sb.WriteString("\n")
	}

	if withOverview {
		sb.WriteString("請為以上資料庫結構生成精簡的文檔，包含以下內容：\n")
		sb.WriteString("1. 資料庫概述\n")
		sb.WriteString("2. 每個表的精簡說明，包括其用途和與其他表的關係\n")
		sb.WriteString("3. 每個列的精簡說明，包括其用途和資料類型的選擇原因\n")
		sb.WriteString("4. 主鍵和外鍵關係的說明\n")
	} else {
		sb.WriteString("請為以上表格生成精簡的文檔，包含以下內容：\n")
		sb.WriteString("1. 每個表的精簡說明，包括其用途和與其他表的關係\n")
		sb.WriteString("2. 每個列的精簡說明，包括其用途和資料類型的選擇原因\n")
		sb.WriteString("3. 主鍵和外鍵關係的說明\n")
		sb.WriteString("4. 不要重複資料庫概述，直接從表格說明開始\n")
	}
	return sb.String()
}

// ColumnLine renders one column with its type, nullability and keys.
func ColumnLine(c introspect.Column) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "  - %s (%s)", c.Name, c.Type)
	if c.Nullable {
		sb.WriteString(", 可為空")
	} else {
		sb.WriteString(", 非空")
	}
	if c.PK {
		sb.WriteString(", 主鍵")
	}
	if c.FK {
		fmt.Fprintf(&sb, ", 外鍵參考 %s.%s", c.FKTable, c.FKColumn)
	}
	return sb.String()
}

func writeTableHeader(sb *strings.Builder, t introspect.Table) {
	fmt.Fprintf(sb, "表名: %s\n", t.Name)
	if t.Schema != "" {
		fmt.Fprintf(sb, "結構: %s\n", t.Schema)
	}
}
