package persona

// VoiceProfile carries the speech parameters used when a persona talks.
type VoiceProfile struct {
	Name         string  `json:"name" yaml:"name"`
	LanguageCode string  `json:"languageCode,omitempty" yaml:"languageCode,omitempty"`
	Pitch        float64 `json:"pitch" yaml:"pitch"`
	Rate         float64 `json:"rate" yaml:"rate"`
}

// Persona is a simulated customer the staff member practises against.
type Persona struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"desc" yaml:"desc"`       // 产品线或难度说明
	Prompt      string       `json:"prompt" yaml:"prompt"`   // 角色设定，只在服务端使用
	Greeting    string       `json:"greeting,omitempty" yaml:"greeting,omitempty"`
	Gender      string       `json:"gender,omitempty" yaml:"gender,omitempty"`
	Voice       VoiceProfile `json:"voice" yaml:"voice"`
}

// Public is the persona shape exposed to the browser; the prompt text stays server side.
type Public struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"desc"`
	Greeting    string `json:"greeting,omitempty"`
	Gender      string `json:"gender,omitempty"`
}

// Public strips server-only fields.
func (p Persona) Public() Public {
	return Public{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Greeting:    p.Greeting,
		Gender:      p.Gender,
	}
}

// Seed provides the built-in customer catalogue.
func Seed() []Persona {
	return []Persona{
		{
			ID:          "1",
			Name:        "น้องฟ้า",
			Description: "SuperSmartSave 20/9",
			Prompt:      "คุณคือ 'ฟ้า' อายุ 25 ปี พนักงานออฟฟิศรุ่นใหม่ ลงท้าย 'ค่ะ' สนใจเรื่องออมเงินแต่ยังไม่แน่ใจว่าจะเก็บเงินได้ต่อเนื่อง",
			Greeting:    "สวัสดีค่ะ ใครโทรมาคะ",
			Gender:      "female",
			Voice:       VoiceProfile{Name: "th-TH-Neural2-A", Pitch: 0.0, Rate: 1.0},
		},
		{
			ID:          "2",
			Name:        "คุณวิรัช",
			Description: "Double Sure Health",
			Prompt:      "คุณคือ 'วิรัช' อายุ 45 ปี ลงท้าย 'ครับ' กังวลเรื่องค่ารักษาพยาบาลและสุขภาพของตัวเอง",
			Greeting:    "ครับ สวัสดีครับ",
			Gender:      "male",
			Voice:       VoiceProfile{Name: "th-TH-Neural2-B", Pitch: -1.0, Rate: 1.0},
		},
		{
			ID:          "3",
			Name:        "คุณป้ามาลี",
			Description: "Wealth 888",
			Prompt:      "คุณคือ 'ป้ามาลี' อายุ 62 ปี ลงท้าย 'ค่ะ/จ๊ะ' อยากวางแผนส่งต่อมรดกให้ลูกหลาน พูดช้าและชอบถามซ้ำ",
			Greeting:    "ฮัลโหล จ๊ะ ใครพูดสายจ๊ะ",
			Gender:      "female",
			Voice:       VoiceProfile{Name: "th-TH-Neural2-A", Pitch: -2.0, Rate: 0.9},
		},
		{
			ID:          "4",
			Name:        "แม่แอน",
			Description: "ยาก: ปฏิเสธหนักมาก",
			Prompt:      "คุณคือ 'แอน' แม่ลูกสองที่ยุ่งตลอดเวลา ปฏิเสธเก่งมาก ตัดบทบ่อย จะยอมฟังต่อก็ต่อเมื่อพนักงานเข้าใจปัญหาของคุณจริง ๆ",
			Greeting:    "ค่ะ ว่าไงคะ ตอนนี้ไม่ค่อยสะดวกนะคะ",
			Gender:      "female",
			Voice:       VoiceProfile{Name: "th-TH-Neural2-A", Pitch: 0.0, Rate: 1.0},
		},
		{
			ID:          "5",
			Name:        "คุณอัครเดช",
			Description: "ยากมาก: นักธุรกิจ",
			Prompt:      "คุณคือ 'อัครเดช' นักธุรกิจมาดเนี้ยบ ลงท้าย 'ครับ' เน้นความคุ้มค่า ขอตัวเลขชัดเจน และจับผิดคำพูดที่คลุมเครือ",
			Greeting:    "ครับ มีอะไรครับ ผมมีเวลาไม่มาก",
			Gender:      "male",
			Voice:       VoiceProfile{Name: "th-TH-Neural2-B", Pitch: -1.5, Rate: 1.05},
		},
		{
			ID:          "6",
			Name:        "คุณวีณา",
			Description: "สุขภาพ + ออมทรัพย์",
			Prompt:      "คุณคือ 'คุณวีณา' ลูกค้าผู้หญิงอายุ 40 ปี น้ำเสียงสุภาพ ใจดี ชอบเล่าเรื่องและถามกลับให้พนักงานอธิบาย มีความดันสูง (บอกเมื่อถูกถามเท่านั้น) ไม่มีเบาหวาน สนใจประกันสุขภาพและออมทรัพย์ให้ตัวเองและครอบครัว",
			Greeting:    "สวัสดีค่ะ",
			Gender:      "female",
			Voice:       VoiceProfile{Name: "th-TH-Standard-A", Pitch: 0.0, Rate: 1.0},
		},
		{
			ID:          "7",
			Name:        "คุณวีระ",
			Description: "ออมเพื่อการศึกษาลูก",
			Prompt:      "คุณคือคุณวีระ อายุ 45 ปี สุภาพ ช่างคุย ลงท้าย 'ครับ' มีความดันสูง (บอกเมื่อถูกถามเท่านั้น) และสนใจประกันออมทรัพย์ให้ลูก",
			Greeting:    "ครับผม สวัสดีครับ",
			Gender:      "male",
			Voice:       VoiceProfile{Name: "th-TH-Neural2-B", Pitch: -1.0, Rate: 1.0},
		},
	}
}
