package database

import "context"

// Namespace scopes every key of kv under prefix, e.g. "profile/<id>/wishlist".
func Namespace(kv KV, prefix string) KV {
	return &namespacedKV{kv: kv, prefix: prefix + "/"}
}

type namespacedKV struct {
	kv     KV
	prefix string
}

func (n *namespacedKV) Get(ctx context.Context, key string) ([]byte, error) {
	return n.kv.Get(ctx, n.prefix+key)
}

func (n *namespacedKV) Set(ctx context.Context, key string, value []byte) error {
	return n.kv.Set(ctx, n.prefix+key, value)
}

func (n *namespacedKV) Delete(ctx context.Context, key string) error {
	return n.kv.Delete(ctx, n.prefix+key)
}
