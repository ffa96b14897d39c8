// Package snapchatads extracts organisations, billing objects, ad
// entities and their stats from the Snapchat Marketing API.
//
// Every listing shares one envelope: a request_status that must be
// SUCCESS, a list of {sub_request_status, <item>} wrappers and a
// paging.next_link whose cursor parameter selects the following page.
// The API offers no server-side change filter, so updated_at is
// compared client-side. Transactions are the exception and take the
// window as start_time and end_time.
//
// The *_stats resources read one stats response per entity at the
// configured granularity and flatten it into rows keyed by campaign_id,
// adsquad_id, ad_id, start_time and end_time.
package snapchatads
