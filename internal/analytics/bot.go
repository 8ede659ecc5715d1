package analytics

import (
	"strings"

	"github.com/mssola/useragent"
)

// Substrings matched case-insensitively against the User-Agent. Link
// unfurlers come first since most shares happen in chat apps.
var botSignatures = []string{
	"facebookexternalhit",
	"facebookcatalog",
	"facebot",
	"whatsapp",
	"telegrambot",
	"discordbot",
	"slackbot",
	"skypeuripreview",
	"viber",
	"pinterest",
	"twitterbot",
	"linkedinbot",
	"redditbot",
	"embedly",
	"iframely",
	"preview",

	"bot",
	"spider",
	"crawl",
	"google-inspectiontool",
	"google-read-aloud",
	"chrome-lighthouse",
	"bingpreview/",

	"go-http-client/",
	"curl/",
	"wget/",
	"python-requests/",
	"python-httpx/",
	"axios/",
	"node-fetch",
	"okhttp/",
	"java/",
	"headlesschrome/",
	"phantomjs",
	"puppeteer",
	"playwright",
}

// IsBot returns true if the user-agent looks like a bot or link-preview
// fetcher. WhatsApp and Facebook crawlers match here, which is how the detail
// page decides to offer them the procedural card.
func IsBot(rawUA string) bool {
	if rawUA == "" {
		return false
	}
	ua := useragent.New(rawUA)
	if ua.Bot() {
		return true
	}
	lower := strings.ToLower(rawUA)
	for _, sig := range botSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// Device types stored with analytics rows.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceBot     = "bot"
)

// DeviceType classifies a User-Agent for the device breakdown.
func DeviceType(rawUA string) string {
	if IsBot(rawUA) {
		return DeviceBot
	}
	lower := strings.ToLower(rawUA)
	if strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet") ||
		(strings.Contains(lower, "android") && !strings.Contains(lower, "mobile")) {
		return DeviceTablet
	}
	if useragent.New(rawUA).Mobile() {
		return DeviceMobile
	}
	return DeviceDesktop
}
