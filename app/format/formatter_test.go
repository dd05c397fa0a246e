package format

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

const rawChannelJSON = `{
  "id": "UC123",
  "snippet": {
    "title": "Test Channel",
    "description": "Business inquiries: hello@example.com or backup@example.org",
    "customUrl": "@testchannel",
    "publishedAt": "2015-03-01T10:00:00Z",
    "thumbnails": {"default": {"url": "https://img.example.com/d.jpg", "width": 88, "height": 88}},
    "country": "US",
    "defaultLanguage": "en-US"
  },
  "statistics": {"viewCount": "100000", "subscriberCount": "2500", "videoCount": "40"},
  "status": {"privacyStatus": "public", "isLinked": true},
  "topicDetails": {"topicCategories": [
    "https://en.wikipedia.org/wiki/Action_(video_game)",
    "https://en.wikipedia.org/",
    "https://en.wikipedia.org/wiki/Role-playing_video_game"
  ]},
  "contentDetails": {"relatedPlaylists": {"uploads": "UU123"}}
}`

const rawVideoJSON = `{
  "id": "vid1",
  "snippet": {
    "title": "Video One",
    "channelId": "UC123",
    "channelTitle": "Test Channel",
    "publishedAt": "2024-01-01T00:00:00Z",
    "defaultAudioLanguage": "es-419"
  },
  "contentDetails": {"duration": "PT1M"},
  "statistics": {"viewCount": "1000", "likeCount": "50", "commentCount": "not-a-number"},
  "status": {"privacyStatus": "public", "embeddable": true}
}`

func testFormatter() *Formatter {
	return NewFormatter(NewLanguageTable(map[string]string{
		"en": "English",
		"es": "Spanish",
	}))
}

func TestFormatChannel(t *testing.T) {
	raw, err := DecodeChannel(json.RawMessage(rawChannelJSON))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	analysis := &LanguageAnalysis{PrimaryLanguage: "es", PrimaryLanguageName: "Spanish", LanguageConfidence: 66.7}
	channel := testFormatter().Channel(raw, analysis)

	if channel.ID != "UC123" {
		t.Errorf("Expected id 'UC123', got '%s'", channel.ID)
	}
	if channel.Handle != "@testchannel" {
		t.Errorf("Expected handle '@testchannel', got '%s'", channel.Handle)
	}
	if channel.SubscriberCount != 2500 || channel.ViewCount != 100000 || channel.VideoCount != 40 {
		t.Errorf("Unexpected statistics: %+v", channel.ChannelStatistics)
	}
	if channel.Email == nil || *channel.Email != "hello@example.com" {
		t.Errorf("Expected first email 'hello@example.com', got %v", channel.Email)
	}
	if channel.DefaultLanguage == nil || channel.DefaultLanguage.Name != "English" {
		t.Errorf("Expected default language English, got %+v", channel.DefaultLanguage)
	}
	if channel.PrimaryAudioLanguage == nil || channel.PrimaryAudioLanguage.Code != "es" {
		t.Errorf("Expected primary audio language 'es', got %+v", channel.PrimaryAudioLanguage)
	}
	if channel.LanguageConfidence != 66.7 {
		t.Errorf("Expected confidence 66.7, got %f", channel.LanguageConfidence)
	}

	expectedCategories := []string{"Action video game", "Role-playing video game"}
	if len(channel.Categories) != len(expectedCategories) {
		t.Fatalf("Expected categories %v, got %v", expectedCategories, channel.Categories)
	}
	for i, want := range expectedCategories {
		if channel.Categories[i] != want {
			t.Errorf("Category %d: expected '%s', got '%s'", i, want, channel.Categories[i])
		}
	}

	if !channel.VerificationStatus.HasEmail || !channel.VerificationStatus.IsVerified {
		t.Errorf("Unexpected verification status: %+v", channel.VerificationStatus)
	}
	if channel.EngagementData.AvgViewsPerVideo != 2500 {
		t.Errorf("Expected 2500 avg views per video, got %d", channel.EngagementData.AvgViewsPerVideo)
	}
	if channel.UploadsPlaylist != "UU123" {
		t.Errorf("Expected uploads playlist 'UU123', got '%s'", channel.UploadsPlaylist)
	}
}

func TestFormatChannelWithoutAnalysis(t *testing.T) {
	raw, err := DecodeChannel(json.RawMessage(`{"id":"UC1","statistics":{"videoCount":"0","viewCount":"77"}}`))
	if err != nil {
		t.Fatal(err)
	}

	channel := testFormatter().Channel(raw, nil)

	if channel.PrimaryAudioLanguage != nil || channel.DefaultLanguage != nil {
		t.Error("Expected no language blocks")
	}
	if channel.LanguageConfidence != 0 {
		t.Errorf("Expected confidence 0, got %f", channel.LanguageConfidence)
	}
	if channel.Email != nil {
		t.Errorf("Expected no email, got %s", *channel.Email)
	}
	if channel.EngagementData.AvgViewsPerVideo != 77 {
		t.Errorf("Expected division by at least 1, got %d", channel.EngagementData.AvgViewsPerVideo)
	}
	if channel.Categories == nil || len(channel.Categories) != 0 {
		t.Errorf("Expected empty categories, got %v", channel.Categories)
	}
}

func TestFormatVideo(t *testing.T) {
	raw, err := DecodeVideo(json.RawMessage(rawVideoJSON))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	video := testFormatter().Video(raw)

	if video.ID != "vid1" || video.Title != "Video One" {
		t.Errorf("Unexpected id/title: %s/%s", video.ID, video.Title)
	}
	if video.ViewCount != 1000 || video.LikeCount != 50 || video.CommentCount != 0 {
		t.Errorf("Expected counts 1000/50/0, got %d/%d/%d", video.ViewCount, video.LikeCount, video.CommentCount)
	}
	if video.DefaultAudioLanguage == nil || video.DefaultAudioLanguage.Name != "Spanish" {
		t.Errorf("Expected audio language Spanish, got %+v", video.DefaultAudioLanguage)
	}
	if video.VideoType != VideoTypeUnknown {
		t.Errorf("Expected video type 'unknown' before merge, got '%s'", video.VideoType)
	}
	if video.Embeddable == nil || !*video.Embeddable {
		t.Error("Expected embeddable true")
	}
	if video.MadeForKids != nil {
		t.Error("Expected made_for_kids to be absent")
	}
	if string(video.RawData) != rawVideoJSON {
		t.Error("Expected raw payload to be retained verbatim")
	}
}

func TestCountDecoding(t *testing.T) {
	tests := []struct {
		input    string
		expected Count
	}{
		{`"123"`, 123},
		{`456`, 456},
		{`""`, 0},
		{`"abc"`, 0},
		{`null`, 0},
		{`-5`, 0},
		{`"-5"`, 0},
		{`1.5`, 0},
	}

	for _, tt := range tests {
		var c Count
		if err := json.Unmarshal([]byte(tt.input), &c); err != nil {
			t.Errorf("Input %s: expected no error, got %v", tt.input, err)
			continue
		}
		if c != tt.expected {
			t.Errorf("Input %s: expected %d, got %d", tt.input, tt.expected, c)
		}
	}
}

func TestExtractEmail(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{"Contact: me@site.io for deals", "me@site.io"},
		{"first.last+tag@sub.example.co.uk and other@x.com", "first.last+tag@sub.example.co.uk"},
		{"no address here", ""},
		{"broken@nodomain", ""},
		{"", ""},
	}

	for _, tt := range tests {
		got := ExtractEmail(tt.text)
		if tt.expected == "" {
			if got != nil {
				t.Errorf("Text %q: expected nil, got %s", tt.text, *got)
			}
			continue
		}
		if got == nil || *got != tt.expected {
			t.Errorf("Text %q: expected %s, got %v", tt.text, tt.expected, got)
		}
	}
}

func TestParseCategories(t *testing.T) {
	input := []string{
		"https://en.wikipedia.org/wiki/Music_of_Asia",
		"https://en.wikipedia.org",
		"https://en.wikipedia.org/wiki/Pok%C3%A9mon",
		"https://en.wikipedia.org/wiki/Lifestyle_(sociology)",
		"https://en.wikipedia.org/wiki/",
		"https://en.wikipedia.org/wiki/Society/",
	}

	got := ParseCategories(input)
	expected := []string{"Music of Asia", "Pokémon", "Lifestyle sociology"}

	if len(got) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Index %d: expected '%s', got '%s'", i, expected[i], got[i])
		}
	}
}

func TestLanguageFallback(t *testing.T) {
	table := NewLanguageTable(map[string]string{
		"es":    "Spanish",
		"zh-TW": "Chinese (Taiwan)",
		"pt":    "Portuguese",
	})

	tests := []struct {
		code     string
		expected string
	}{
		{"es-419", "Spanish"},
		{"zh-TW", "Chinese (Taiwan)"},
		{"PT", "Portuguese"},
		{"xx-ZZ", "XX-ZZ"},
		{"", "Unknown"},
	}

	for _, tt := range tests {
		if got := table.Name(tt.code); got != tt.expected {
			t.Errorf("Code %q: expected '%s', got '%s'", tt.code, tt.expected, got)
		}
	}
}

func TestDefaultLanguages(t *testing.T) {
	table, err := DefaultLanguages()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if table.Len() < 50 {
		t.Errorf("Expected a populated table, got %d entries", table.Len())
	}
	if got := table.Name("en"); got != "English" {
		t.Errorf("Expected 'English', got '%s'", got)
	}
	if got := table.Name("es"); got != "Spanish" {
		t.Errorf("Expected 'Spanish', got '%s'", got)
	}
}

func TestLoadLanguagesFromAPIList(t *testing.T) {
	tempDir := t.TempDir()
	content := `{"kind":"youtube#i18nLanguageListResponse","items":[
    {"id":"en","snippet":{"hl":"en","name":"English"}},
    {"id":"de","snippet":{"hl":"de","name":"German"}}
  ]}`
	path := filepath.Join(tempDir, "languagelist.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadLanguages(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("Expected 2 languages, got %d", table.Len())
	}
	if got := table.Name("de-AT"); got != "German" {
		t.Errorf("Expected 'German', got '%s'", got)
	}
}

func TestLoadLanguagesMap(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "languages.yml")
	if err := os.WriteFile(path, []byte("languages:\n  en: English\n  fil: Filipino\n"), 0644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadLanguages(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got := table.Name("fil"); got != "Filipino" {
		t.Errorf("Expected 'Filipino', got '%s'", got)
	}
}

func TestLoadLanguagesErrors(t *testing.T) {
	tempDir := t.TempDir()

	if _, err := LoadLanguages(filepath.Join(tempDir, "missing.yml")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := filepath.Join(tempDir, "empty.yml")
	if err := os.WriteFile(path, []byte("codes: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLanguages(path); err == nil {
		t.Error("Expected error for empty table")
	}
}
