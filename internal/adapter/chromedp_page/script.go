package chromedp_page

const (
	helperName  = "__ngb"
	bindingName = "__ngbMutation"
)

// helperScript installs window.__ngb. Elements handed to Go are tracked as
// opaque ids backed by WeakRefs, so detached nodes stay addressable until
// they are collected. Observer batches are reported through the runtime
// binding as {"watch": id, "added": [ids]}.
const helperScript = `(() => {
  if (window.__ngb) return;

  const ids = new WeakMap();
  const refs = new Map();
  const observers = new Map();
  const registry = new FinalizationRegistry((id) => refs.delete(id));
  let seq = 0;

  const ref = (el) => {
    let id = ids.get(el);
    if (!id) {
      id = 'c' + (++seq);
      ids.set(el, id);
      refs.set(id, new WeakRef(el));
      registry.register(el, id);
    }
    return id;
  };
  const el = (id) => {
    const r = refs.get(id);
    const e = r && r.deref();
    if (!e) throw new Error('ngb: node not found: ' + id);
    return e;
  };
  const hit = (e) => (e ? { found: true, value: ref(e) } : { found: false, value: '' });

  window.__ngb = {
    find: (sel) => hit(document.querySelector(sel)),
    queryAll: (root, sel) => Array.from(el(root).querySelectorAll(sel), ref),
    matches: (node, sel) => el(node).matches(sel),
    closest: (node, sel) => hit(el(node).closest(sel)),
    urlAttr: (node, name) => {
      const e = el(node);
      if (!e.hasAttribute(name)) return { found: false, value: '' };
      const raw = e.getAttribute(name);
      try {
        return { found: true, value: new URL(raw, document.baseURI).href };
      } catch (_) {
        return { found: true, value: raw };
      }
    },
    style: (node, prop) => el(node).style.getPropertyValue(prop),
    remove: (node) => {
      el(node).remove();
      return true;
    },
    overlay: (node, caption, style) => {
      const host = el(node);
      if (!host.style.position) host.style.position = 'relative';
      const o = document.createElement('div');
      o.setAttribute('data-ngb-overlay', 'true');
      o.setAttribute('role', 'button');
      o.setAttribute('style', style);
      o.textContent = caption;
      o.addEventListener('click', (ev) => {
        ev.preventDefault();
        ev.stopPropagation();
        o.remove();
      });
      host.appendChild(o);
      return ref(o);
    },
    observe: (watch, root) => {
      const mo = new MutationObserver((records) => {
        const added = [];
        for (const r of records) {
          for (const n of r.addedNodes) {
            if (n.nodeType === Node.ELEMENT_NODE) added.push(ref(n));
          }
        }
        if (added.length && typeof window.__ngbMutation === 'function') {
          window.__ngbMutation(JSON.stringify({ watch, added }));
        }
      });
      mo.observe(el(root), { childList: true, subtree: true });
      observers.set(watch, mo);
      return true;
    },
    unobserve: (watch) => {
      const mo = observers.get(watch);
      if (mo) {
        mo.disconnect();
        observers.delete(watch);
      }
      return true;
    },
  };
})();`
