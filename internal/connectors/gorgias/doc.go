// Package gorgias extracts customers, tickets, messages and satisfaction
// surveys from the Gorgias helpdesk API. Listings are requested newest
// first so a run stops as soon as it reaches the stored watermark.
package gorgias
