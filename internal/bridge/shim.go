package bridge

// BindingName is the DevTools runtime binding the shim reports through.
const BindingName = "__doctestBridge"

// Shim is evaluated in every new document before page scripts run. It
// provides the window.callPhantom entry point harness pages already use.
// undefined is sent as null so it decodes as an absent message.
const Shim = `(function () {
  if (typeof window.callPhantom === 'function') {
    return;
  }
  window.callPhantom = function (data) {
    var payload;
    try {
      payload = JSON.stringify(data === undefined ? null : data);
    } catch (e) {
      payload = 'null';
    }
    if (payload === undefined) {
      payload = 'null';
    }
    window.` + BindingName + `(payload);
  };
})();`
