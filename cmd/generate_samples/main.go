// Command generate_samples writes sample export files in every supported
// input format, for manual testing of the import pipeline.
// Usage: go run cmd/generate_samples/main.go [-dir path/to/samples]
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
)

const defaultSamplesDir = "./samples"

func main() {
	dir := flag.String("dir", defaultSamplesDir, "directory to write sample files into")
	flag.Parse()

	log.Printf("Generating sample export files in %s...", *dir)

	if err := os.MkdirAll(*dir, 0755); err != nil {
		log.Fatalf("Failed to create samples directory: %v", err)
	}

	for name, content := range sampleFiles() {
		path := filepath.Join(*dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			log.Fatalf("Failed to write %s: %v", path, err)
		}
		log.Printf("Wrote: %s", path)
	}

	log.Println("Sample files generated successfully!")
}

func sampleFiles() map[string]string {
	return map[string]string{
		"weread_notes.json": `{
  "bookTitle": "思考，快与慢",
  "author": "丹尼尔·卡尼曼",
  "notes": [
    {"content": "系统1的运行是无意识且快速的。", "type": "highlight", "chapter": "第一章", "position": 42},
    {"content": "这一段值得反复阅读。", "type": "想法", "chapter": "第一章", "position": 43},
    {"content": "", "type": "书签", "chapter": "第二章", "position": 88}
  ]
}
`,
		"weread_notes.csv": `"书名","作者","章节","内容","类型","时间"
"思考，快与慢","丹尼尔·卡尼曼","第一章","系统2的运行需要集中注意力。","划线","2024-01-15 10:00:00"
"思考，快与慢","丹尼尔·卡尼曼","第二章","包含""引号""和,逗号的内容。","想法","2024-01-16 12:30:00"
`,
		"weread_notes.txt": `《思考，快与慢》
作者：丹尼尔·卡尼曼

章节：第一章
划线：直觉就是识别，不多也不少。
想法：与第二章的论证呼应。
书签：
`,
		"ireader_notes.json": `{
  "book": "三体",
  "author": "刘慈欣",
  "items": [
    {"text": "弱小和无知不是生存的障碍，傲慢才是。", "category": "highlight", "chapter": "第三章", "page": 120},
    {"text": "经典台词。", "category": "note", "chapter": "第三章", "page": 120}
  ]
}
`,
		"ireader_backup.irb": `<note>
  <title>三体</title>
  <author>刘慈欣</author>
  <chapter>第一章</chapter>
  <content>给岁月以文明，而不是给文明以岁月。</content>
  <kind>highlight</kind>
  <time>2024-01-15 10:00:00</time>
  <page>56</page>
</note>
<note>
  <title>三体</title>
  <content>黑暗森林法则的第一次提出。</content>
  <kind>note</kind>
  <page>57</page>
</note>
`,
		"ireader_notes.txt": `书名：三体
作者：刘慈欣

第一章
高亮：给岁月以文明，而不是给文明以岁月。
笔记：黑暗森林法则的铺垫。
书签：
`,
	}
}
