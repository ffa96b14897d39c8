// Package tiktokads extracts integrated reports and campaigns from the
// TikTok Business API. Report windows are split into chunks the API
// accepts and paged with a page counter.
package tiktokads
