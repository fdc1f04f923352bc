package ai

import (
	"strings"
	"testing"
	"time"

	"reportbot/pkg/models"
)

func TestBuildPrompt(t *testing.T) {
	req := &models.GenerationRequest{
		ReportType:      models.ReportTypeDaily,
		Tone:            models.ToneProfessional,
		AdditionalNotes: "shipped the billing fix",
	}
	summary := models.ActivitySummary{
		TopApps: []models.AppUsage{
			{App: "Safari", Seconds: 1920},
			{App: "Xcode", Seconds: 1080},
		},
	}
	now := time.Date(2026, 3, 2, 17, 30, 0, 0, time.Local)

	prompt := BuildPrompt(req, summary, "", now)

	if !strings.Contains(prompt, "Generate a daily report for March 2, 2026.") {
		t.Errorf("missing type/date line:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Tone: professional") {
		t.Error("missing tone line")
	}
	if !strings.Contains(prompt, "Main apps used today: Safari (32 min), Xcode (18 min)") {
		t.Error("missing activity line")
	}
	if !strings.Contains(prompt, "Additional notes from the user: shipped the billing fix") {
		t.Error("missing notes line")
	}
	// 没有模板时不出现模板段落
	if strings.Contains(prompt, "examples of past reports") {
		t.Error("template section present without templates")
	}
}

func TestBuildPrompt_Defaults(t *testing.T) {
	req := &models.GenerationRequest{
		ReportType: models.ReportTypeSocialMedia,
		Tone:       models.ToneCasual,
	}
	summary := models.ActivitySummary{}
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.Local)

	prompt := BuildPrompt(req, summary, "", now)

	if !strings.Contains(prompt, "Additional notes from the user: None") {
		t.Error("empty notes should render as None")
	}
	if !strings.Contains(prompt, "Main apps used today: No activity tracked yet") {
		t.Error("empty summary should render placeholder")
	}
}

func TestBuildPrompt_WithTemplates(t *testing.T) {
	req := &models.GenerationRequest{
		ReportType: models.ReportTypeWeekly,
		Tone:       models.ToneConcise,
	}
	templatesText := "--- Template: weekly ---\nAccomplishments:\n- ..."
	now := time.Date(2026, 3, 6, 17, 0, 0, 0, time.Local)

	prompt := BuildPrompt(req, models.ActivitySummary{}, templatesText, now)

	if !strings.Contains(prompt, "Here are examples of past reports to match the style and format:") {
		t.Error("missing template section header")
	}
	if !strings.Contains(prompt, templatesText) {
		t.Error("template text not embedded")
	}
}
