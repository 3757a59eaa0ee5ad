// settings.go
package config

// Marketplace pages, selectors, and fixed operational constants
const (
	/**
	[[MARKETPLACE PAGES]]
	*/

	MarketplaceHome      = "https://www.facebook.com"
	MarketplaceSearchURL = "https://www.facebook.com/marketplace/search?query=%s"
	MarketplaceItemURL   = "https://www.facebook.com/marketplace/item/%s"
	MessagesInboxURL     = "https://www.facebook.com/messages"
	MessageThreadURL     = "https://www.facebook.com/messages/t/%s"

	//CSS Selectors
	ListingTitleSelector  = `h1 span`                                              //Listing title
	ListingPriceSelector  = `div[data-testid="marketplace_pdp_price"]`             //Asking price
	ListingDescSelector   = `div[data-testid="marketplace_pdp_description"] span`  //Description
	ListingSellerSelector = `div[data-testid="marketplace_pdp_seller"] span`       //Seller name
	MessageButtonSelector = `div[aria-label="Message"]`                            //Open chat dialog
	MessageInputSelector  = `div[aria-label="Message"][role="textbox"]`            //Chat input box
	SendButtonSelector    = `div[aria-label="Press enter to send"]`                //Send button

	/**
	[[SESSION LIMITS & THROTTLING]]
	*/

	MaxOffersPerSession        = 10    //Offers sent before the offer agent stops
	MaxConversationsPerSession = 10    //Threads processed per conversation agent run
	OfferThrottle              = 10000 //Milliseconds to yield between offers
	ConversationThrottle       = 2000  //Milliseconds to yield between threads

	//Negotiation
	DefaultPriceFlexibility = 20 //Max concession above initial offer ($)
	CounterRetryLimit       = 2  //Out-of-reach counter rounds before human handoff

	/**
	[[ANALYZER SETTINGS]]
	*/

	DipThreshold   = -1.5 //SD below mean asking price to flag a listing as underpriced
	LookbackPeriod = 90   //Past number of days of listings to include in price stats
	TrendPeriod    = 7    //Seasonal period (days) for asking-price decomposition

	/**
	[[DATA FILES]]
	*/

	DataDir       = "data"
	ListingsFile  = "data/listings.json" //Scraped listings and messaged status
	MessagesFile  = "data/messages.json" //Conversations and negotiation state
	ActionLogFile = "data/actions.log"   //Log of all sent offers and replies
	StatsFile     = "data/price_stats.csv"
	ChartDir      = "data/charts"        //Rendered asking-price trend charts
	ScriptFile    = "negotiation_script.md"

	//Web Agents
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)
