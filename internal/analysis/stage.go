package analysis

import (
	"fmt"
	"strings"
)

// Stage is one step of the escalation ladder. Each later stage frames the
// prompt more strictly than the one before.
type Stage int

const (
	StageInitial Stage = iota
	StageRetry1
	StageRetry2
)

var stageNames = map[Stage]string{
	StageInitial: "initial",
	StageRetry1:  "retry_1",
	StageRetry2:  "retry_2",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage_%d", int(s))
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	for st, name := range stageNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", string(b))
}

// Next returns the following stage, or false once the ladder is exhausted.
func (s Stage) Next() (Stage, bool) {
	if s >= StageRetry2 {
		return s, false
	}
	return s + 1, true
}

// Prompt renders the instruction sent to the generator for this stage.
func (s Stage) Prompt(repoName string) string {
	repoName = strings.TrimSpace(repoName)
	switch s {
	case StageRetry1:
		return fmt.Sprintf(retry1PromptTemplate, repoName)
	case StageRetry2:
		return fmt.Sprintf(retry2PromptTemplate, repoName)
	default:
		return fmt.Sprintf(initialPromptTemplate, repoName)
	}
}

const initialPromptTemplate = `你是资深技术分析师。请快速阅读仓库（优先 README、docs、根目录配置文件与主要源码目录），输出“功能描述 + 技术栈 + 核心功能”。

仓库：%s
要求：
1) 不要执行重型构建/测试，仅基于文件结构与文档判断。
2) 输出必须是严格 JSON（不要 Markdown，不要解释，不要代码块）。
3) 禁止输出占位词：例如“120-220字中文”“功能点1”“语言/框架/关键基础设施”。
4) 功能描述至少 80 字，必须包含项目要解决的问题、目标用户和典型场景。
5) 核心功能至少 4 条，且要具体。
`

const retry1PromptTemplate = `你上一次输出不合格（包含占位词或信息不足）。请重新输出，并且只返回 JSON。

仓库：%s
强约束：
- 严禁出现“功能点1/2/3/4”“120-220字中文”“语言/框架/关键基础设施”等模板文本。
- 功能描述必须具体，至少 80 字。
- 核心功能至少 4 条，且每条都要包含具体动作或能力。
- 技术栈至少 3 项（若仓库规模较小可写 2 项）。
`

const retry2PromptTemplate = `最后一次重试：请严格返回 JSON，并确保信息具体可用。

仓库：%s
要求：
- 功能描述：100-220字中文，必须具体。
- 技术栈：3-8项，写出语言、框架、关键依赖或基础设施。
- 核心功能：4-6项，每条必须可执行、可验证，不得写模板词。
`
