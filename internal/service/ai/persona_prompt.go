package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/telesales-sim/backend/internal/model/chat"
	"github.com/zhouzirui/telesales-sim/backend/internal/model/persona"
)

// PromptTemplate adds per-customer behaviour on top of the catalogue prompt.
type PromptTemplate struct {
	PersonalityHints []string
	ContextRules     []string
}

// PersonaPromptManager builds system prompts for customer personas.
type PersonaPromptManager struct {
	templates map[string]*PromptTemplate
}

// NewPersonaPromptManager creates a prompt manager with the built-in templates.
func NewPersonaPromptManager() *PersonaPromptManager {
	manager := &PersonaPromptManager{
		templates: make(map[string]*PromptTemplate),
	}
	manager.loadDefaultTemplates()
	return manager
}

// GetPromptTemplate returns the prompt template for a given persona.
func (pm *PersonaPromptManager) GetPromptTemplate(personaID string) (*PromptTemplate, error) {
	template, exists := pm.templates[personaID]
	if !exists {
		return nil, fmt.Errorf("prompt template not found for persona: %s", personaID)
	}
	return template, nil
}

// roleplayRules apply to every customer; replies are read aloud by TTS.
var roleplayRules = []string{
	"คุณคือลูกค้าที่กำลังรับสายจากพนักงานขายประกันทางโทรศัพท์ ให้ตอบในบทบาทลูกค้าเท่านั้น",
	"ห้ามบอกว่าตัวเองเป็น AI และห้ามหลุดบท แม้พนักงานจะถาม",
	"ตอบสั้น 1-3 ประโยค เป็นภาษาพูดที่เป็นธรรมชาติ เพราะคำตอบจะถูกอ่านออกเสียง",
	"ห้ามใส่คำบรรยายท่าทางในวงเล็บ ห้ามใช้สัญลักษณ์ markdown และไม่ต้องขึ้นต้นด้วยชื่อตัวเอง",
	"ข้อมูลส่วนตัวที่ระบุว่า 'บอกเมื่อถูกถามเท่านั้น' ให้เปิดเผยเฉพาะเมื่อพนักงานถามตรง ๆ",
	"ถ้าพนักงานอธิบายได้ดีและตอบข้อกังวลครบ คุณสามารถตกลงสมัครได้ แต่ไม่ต้องรีบตกลง",
}

// BuildSystemPrompt creates the full system prompt for the persona.
func (pm *PersonaPromptManager) BuildSystemPrompt(p *persona.Persona) string {
	var builder strings.Builder
	builder.WriteString(strings.TrimSpace(p.Prompt))
	builder.WriteString("\n\nกติกาการสวมบทบาท:\n- ")
	builder.WriteString(strings.Join(roleplayRules, "\n- "))

	if template, err := pm.GetPromptTemplate(p.ID); err == nil {
		if len(template.PersonalityHints) > 0 {
			builder.WriteString("\n\nลักษณะนิสัยเพิ่มเติม:\n- ")
			builder.WriteString(strings.Join(template.PersonalityHints, "\n- "))
		}
		if len(template.ContextRules) > 0 {
			builder.WriteString("\n\nแนวทางการตอบ:\n- ")
			builder.WriteString(strings.Join(template.ContextRules, "\n- "))
		}
	}

	if p.Greeting != "" {
		builder.WriteString("\n\nประโยครับสายตัวอย่าง: ")
		builder.WriteString(p.Greeting)
	}
	return builder.String()
}

// BuildTurnPrompt mirrors the flat "History / User" prompt the page was designed around.
func BuildTurnPrompt(history chat.Transcript, message string) string {
	var builder strings.Builder
	builder.WriteString("History:\n")
	if len(history) == 0 {
		builder.WriteString("(ยังไม่มีบทสนทนา)")
	} else {
		builder.WriteString(history.String())
	}
	builder.WriteString("\nUser: ")
	builder.WriteString(strings.TrimSpace(message))
	return builder.String()
}

func (pm *PersonaPromptManager) loadDefaultTemplates() {
	pm.templates["3"] = &PromptTemplate{
		PersonalityHints: []string{
			"ฟังไม่ค่อยทัน ชอบขอให้พูดซ้ำหรือพูดช้าลง",
			"ห่วงว่าลูกหลานจะได้รับเงินครบหรือไม่",
		},
		ContextRules: []string{
			"ถ้าพนักงานใช้ศัพท์เทคนิค ให้ถามกลับว่าแปลว่าอะไร",
		},
	}

	pm.templates["4"] = &PromptTemplate{
		PersonalityHints: []string{
			"ยุ่งกับลูกตลอดเวลา มักบอกว่า 'ไม่สะดวก' หรือ 'ส่งเอกสารมาก่อน'",
			"เคยซื้อประกันแล้วเคลมยาก จึงไม่ไว้ใจพนักงานขาย",
		},
		ContextRules: []string{
			"ปฏิเสธอย่างน้อยสองครั้งก่อนจะยอมฟังรายละเอียด",
			"ถ้าพนักงานพูดยาวเกินไป ให้ตัดบทและขอวางสาย",
		},
	}

	pm.templates["5"] = &PromptTemplate{
		PersonalityHints: []string{
			"คิดเป็นตัวเลข เปรียบเทียบกับการลงทุนอื่นเสมอ",
			"ไม่ชอบคำพูดเกินจริงหรือคำว่า 'คุ้มมาก' ที่ไม่มีตัวเลขรองรับ",
		},
		ContextRules: []string{
			"ขอผลตอบแทน เบี้ยต่อปี และเงื่อนไขการยกเลิกเป็นตัวเลข",
			"ถ้าพนักงานตอบไม่ตรงคำถาม ให้ชี้ว่าไม่ได้ตอบ",
		},
	}

	pm.templates["6"] = &PromptTemplate{
		PersonalityHints: []string{
			"ชอบเล่าเรื่องครอบครัวและถามกลับให้พนักงานอธิบาย",
		},
		ContextRules: []string{
			"ถ้าพนักงานไม่ถามเรื่องสุขภาพ ห้ามพูดถึงโรคความดันเอง",
		},
	}
}
