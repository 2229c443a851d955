package redis

import goredis "github.com/redis/go-redis/v9"

// Every key a script touches is passed in KEYS and shares the {hash} tag, so
// the scripts run on a single cluster slot.

// createScript stores a link document and claims the active hash index.
// KEYS[1] active index, KEYS[2] document. ARGV[1] document JSON, ARGV[2] id.
var createScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('SET', KEYS[2], ARGV[1])
redis.call('SET', KEYS[1], ARGV[2])
return 1
`)

// visitScript appends a visit to the active link and returns the document
// with the visits recorded before the append. A reply of {'stale'} means the
// active index no longer points at ARGV[1].
// KEYS[1] active index, KEYS[2] document, KEYS[3] visits list.
// ARGV[1] expected id, ARGV[2] visit time in ms.
var visitScript = goredis.NewScript(`
local id = redis.call('GET', KEYS[1])
if not id then
	return false
end
if id ~= ARGV[1] then
	return {'stale'}
end
local doc = redis.call('GET', KEYS[2])
if not doc then
	return false
end
local visits = redis.call('LRANGE', KEYS[3], 0, -1)
redis.call('RPUSH', KEYS[3], ARGV[2])
return {doc, visits}
`)

// deactivateScript marks the active link removed when the token matches and
// releases its hash. Replies as visitScript does.
// KEYS[1] active index, KEYS[2] document, KEYS[3] visits list.
// ARGV[1] expected id, ARGV[2] remove token, ARGV[3] removal time in ms.
var deactivateScript = goredis.NewScript(`
local id = redis.call('GET', KEYS[1])
if not id then
	return false
end
if id ~= ARGV[1] then
	return {'stale'}
end
local raw = redis.call('GET', KEYS[2])
if not raw then
	return false
end
local doc = cjson.decode(raw)
if doc.removeToken ~= ARGV[2] then
	return false
end
doc.active = false
doc.removedAt = tonumber(ARGV[3])
local encoded = cjson.encode(doc)
redis.call('SET', KEYS[2], encoded)
redis.call('DEL', KEYS[1])
local visits = redis.call('LRANGE', KEYS[3], 0, -1)
return {encoded, visits}
`)
