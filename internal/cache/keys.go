package cache

import "fmt"

// LiveStatusKey caches the streaming provider's live/idle answer for a
// provider stream id so CLI polling does not hammer the provider.
func LiveStatusKey(providerStreamID string) string {
	return fmt.Sprintf("livestatus:%s", providerStreamID)
}
